package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/utils"
)

var (
	configPath string
	serverAddr string
)

var rootCmd = &cobra.Command{
	Use:           "autoops",
	Short:         "Closed-loop remediation pipeline: ingest, summarize, decide, execute",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults to $AUTOOPS_CONFIG)")
	rootCmd.AddCommand(serveCmd, runCmd, clearCacheCmd, healthCmd)
}

// loadConfig keeps logs on stderr so stdout carries only command output.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON, cfg.Logging.File)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
