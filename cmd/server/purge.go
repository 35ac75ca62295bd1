package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/backend"
	"arty-web/internal/platform/cache"
)

func newPurgeCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Drop the cached image listing",
		Long: `Deletes the cached root listing from Redis so the next page load
fetches it from the backend again. Use it after new images are indexed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cfg.Cache.Enabled {
				return errors.New("listing cache is disabled (CACHE_ENABLED=false)")
			}

			logger := observability.NewLogger(observability.LoadConfig())
			ctx := cmd.Context()

			rc, err := cache.NewRedisClient(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer rc.Close()

			client, err := backend.New(cfg.Backend, logger, backend.WithListingCache(rc, cfg.Cache.DefaultTTL))
			if err != nil {
				return fmt.Errorf("failed to create backend client: %w", err)
			}
			if err := client.InvalidateListing(ctx); err != nil {
				return err
			}

			logger.Component("purge-cache").Info(ctx).Str("redis", cfg.Cache.Address).Msg("Listing cache purged")
			return nil
		},
	}
}
