package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/autoops/internal/api"
	"github.com/miradorstack/autoops/internal/models"
	"github.com/miradorstack/autoops/internal/services"
)

var (
	metricsFile   string
	runServerAddr string
	runTimeout    time.Duration
	rpcTimeout    time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run in-process, or on a server with --server",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readMetricsFile(metricsFile)
		if err != nil {
			return err
		}

		if runServerAddr != "" {
			return runRemote(cmd, raw)
		}

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		service, closeFn, err := services.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := service.Run(cmd.Context(), raw)
		if err != nil {
			return reportRunError(cmd, err)
		}
		return printJSON(cmd.OutOrStdout(), result)
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop every cached summary and decision on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.Dial(serverAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		msg, err := client.ClearCache(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health document of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.Dial(serverAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), rpcTimeout)
		defer cancel()
		doc, err := client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), doc)
	},
}

func init() {
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "JSON file with a metrics snapshot to use instead of the configured source")
	runCmd.Flags().StringVar(&runServerAddr, "server", "", "Run on a remote AutoOps server at this address")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "Deadline for the remote call")

	for _, c := range []*cobra.Command{clearCacheCmd, healthCmd} {
		c.Flags().StringVar(&serverAddr, "server", "localhost:50061", "AutoOps server address")
		c.Flags().DurationVar(&rpcTimeout, "timeout", 10*time.Second, "Deadline for the remote call")
	}
}

func runRemote(cmd *cobra.Command, raw map[string]any) error {
	client, err := api.Dial(runServerAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()
	out, err := client.RunFlow(ctx, raw)
	if err != nil {
		return reportRunError(cmd, err)
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func readMetricsFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics file: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse metrics file: %w", err)
	}
	return raw, nil
}

func reportRunError(cmd *cobra.Command, err error) error {
	var runErr *models.RunError
	if errors.As(err, &runErr) {
		_ = printJSON(cmd.ErrOrStderr(), runErr)
	}
	return err
}
