package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/server"
	"arty-web/internal/services"
	"arty-web/internal/web/handlers"
)

const (
	shutdownTimeout     = 30 * time.Second
	maintenanceInterval = time.Minute
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Example: `  # Start with settings from the environment or .env
  arty-web serve

  # Override the listen port
  arty-web serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	obsConfig := observability.LoadConfig()
	obsConfig.Environment = cfg.Environment
	if cfg.Logging != nil {
		obsConfig.LogLevel = cfg.Logging.Level
		obsConfig.LogFormat = cfg.Logging.Format
		obsConfig.LogOutput = cfg.Logging.Output
	}
	logger := observability.NewLogger(obsConfig)

	provider, err := observability.NewProvider(ctx, obsConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx).Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error(context.Background()).Err(err).Msg("Failed to close services container")
		}
	}()

	metrics, err := observability.NewHTTPMetrics(provider.Meter("arty-web/http"))
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	defer stopMaintenance()
	go container.RunMaintenance(maintenanceCtx, maintenanceInterval)

	handler := handlers.NewWithContainer(container, metrics)
	srv := server.New(cfg.Host, cfg.Port, handler.Routes(), cfg.Server)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx).Str("addr", srv.Addr).Str("backend", cfg.Backend.BaseURL).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background()).Msg("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info(shutdownCtx).Msg("Server exited")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
}
