package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/autoops/internal/api"
	"github.com/miradorstack/autoops/internal/metrics"
	"github.com/miradorstack/autoops/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the AutoOps gRPC API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger.Info("starting autoops", slog.String("address", cfg.Server.Address))

		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		service, closeFn, err := services.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeFn(); err != nil {
				logger.Warn("close health store", slog.Any("error", err))
			}
		}()

		server, err := api.NewServer(cfg.Server, service)
		if err != nil {
			return fmt.Errorf("create gRPC server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var metricsServer *http.Server
		if cfg.Server.MetricsAddress != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer = &http.Server{
				Addr:         cfg.Server.MetricsAddress,
				Handler:      mux,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 15 * time.Second,
			}
			go func() {
				logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server exited", slog.Any("error", err))
					stop()
				}
			}()
		}

		go func() {
			logger.Info("gRPC server listening", slog.String("address", server.Address()))
			if serveErr := server.Start(); serveErr != nil {
				logger.Error("gRPC server exited", slog.Any("error", serveErr))
				stop()
			}
		}()

		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
		defer cancel()
		server.Shutdown(shutdownCtx)

		if metricsServer != nil {
			metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
			if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
			cancelMetrics()
		}

		logger.Info("autoops stopped", slog.Duration("p95", service.LatencyP95()))
		return nil
	},
}
