package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/backend"
	"arty-web/internal/platform/cache"
	"arty-web/internal/platform/database"
	"arty-web/internal/platform/kv"
	"arty-web/internal/platform/storage"
	"arty-web/internal/screens"
	"arty-web/internal/screens/search"
	"arty-web/internal/screens/user"
	"arty-web/internal/session"
	"arty-web/internal/web/middleware"
)

// previewQuality is the JPEG quality used when a preview is re-encoded
const previewQuality = 85

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	// logger is handed to services untagged; log carries the container component
	logger *observability.Logger
	log    *observability.Logger

	// Infrastructure, each nil unless the config selects it
	db    *sql.DB
	redis *cache.RedisClient
	minio *storage.MinIOClient

	store     kv.Store
	previews  storage.PreviewStore
	processor *storage.PreviewProcessor
	backend   *backend.Client
	sessions  *session.Manager
	limiter   *middleware.RateLimiter

	searches *screens.Registry[*search.Screen]
	users    *screens.Registry[*user.Screen]
}

// NewContainer connects the configured infrastructure and builds the services on top of it
func NewContainer(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Container, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	c := &Container{
		config: cfg,
		logger: logger,
		log:    logger.Component("container"),
	}

	if err := c.initializeInfrastructure(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}

	if err := c.initializeServices(); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}
		return nil, err
	}

	c.log.Info(ctx).
		Str("session_store", cfg.Session.Store).
		Str("preview_store", cfg.Storage.Backend).
		Bool("listing_cache", cfg.Cache.Enabled).
		Msg("Dependency injection container initialized successfully")

	return c, nil
}

func (c *Container) initializeInfrastructure(ctx context.Context) error {
	if c.config.NeedsDatabase() {
		db, err := database.NewConnection(ctx, c.config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.db = db

		applied, err := database.RunMigrations(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		for _, name := range applied {
			c.log.Info(ctx).Str("migration", name).Msg("Applied migration")
		}
	}

	if c.config.NeedsRedis() {
		rc, err := cache.NewRedisClient(ctx, c.config.Cache)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = rc
	}

	if c.config.Storage.Backend == config.StoreMinIO {
		mc, err := storage.NewMinIOClient(ctx, c.config.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		c.minio = mc
	}

	return nil
}

// initializeServices builds everything in dependency order
func (c *Container) initializeServices() error {
	ttl := c.config.Session.TTL

	switch c.config.Session.Store {
	case config.StoreRedis:
		c.store = kv.NewRedisStore(c.redis, ttl)
	case config.StorePostgres:
		c.store = kv.NewPostgresStore(c.db, ttl)
	default:
		c.store = kv.NewMemoryStore(ttl)
	}

	if c.minio != nil {
		c.previews = storage.NewMinIOPreviewStore(c.minio)
	} else {
		c.previews = storage.NewMemoryPreviewStore()
	}
	c.processor = storage.NewPreviewProcessor(storage.PreviewMaxWidth, storage.PreviewMaxHeight, previewQuality)

	var opts []backend.Option
	if c.config.Cache.Enabled && c.redis != nil {
		opts = append(opts, backend.WithListingCache(c.redis, c.config.Cache.DefaultTTL))
	}
	client, err := backend.New(c.config.Backend, c.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	c.backend = client

	c.sessions = session.NewManager(c.store, c.backend, c.logger)
	c.limiter = middleware.NewRateLimiter(c.config.RateLimit)

	c.searches = screens.NewRegistry[*search.Screen](ttl)
	c.users = screens.NewRegistry[*user.Screen](ttl)

	return nil
}

// NewSearchScreen builds an unmounted search screen
func (c *Container) NewSearchScreen() *search.Screen {
	return search.New(search.Deps{
		Source:       c.backend,
		Previews:     c.previews,
		Processor:    c.processor,
		AllowedTypes: c.config.Storage.AllowedTypes,
		Logger:       c.logger,
	})
}

// NewUserScreen builds an unmounted user screen bound to sessionID
func (c *Container) NewUserScreen(sessionID string) *user.Screen {
	return user.New(sessionID, user.Deps{
		Backend:           c.backend,
		Sessions:          c.sessions,
		RollbackOnFailure: c.config.Backend.RollbackOnFailure,
		Logger:            c.logger,
	})
}

// RunMaintenance sweeps idle screens, sessions and limiter entries every interval until ctx ends
func (c *Container) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass
func (c *Container) Sweep(ctx context.Context) {
	event := c.log.Debug(ctx).
		Int("search_screens", c.searches.Sweep()).
		Int("user_screens", c.users.Sweep()).
		Int("visitors", c.limiter.Sweep())

	switch store := c.store.(type) {
	case *kv.MemoryStore:
		event = event.Int("sessions", store.Sweep())
	case *kv.PostgresStore:
		n, err := store.Sweep(ctx)
		if err != nil {
			c.log.Error(ctx).Err(err).Msg("Failed to sweep expired session rows")
		}
		event = event.Int64("sessions", n)
	}

	event.Msg("Swept idle state")
}

// HealthChecks returns one readiness check per configured dependency.
// Object storage is left out since previews are not needed to serve pages.
func (c *Container) HealthChecks() map[string]HealthCheck {
	checks := make(map[string]HealthCheck)
	if c.db != nil {
		checks["database"] = c.db.PingContext
	}
	if c.redis != nil {
		checks["cache"] = c.redis.Health
	}
	return checks
}

// Getters for accessing services

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) DB() *sql.DB {
	return c.db
}

func (c *Container) Store() kv.Store {
	return c.store
}

func (c *Container) Previews() storage.PreviewStore {
	return c.previews
}

func (c *Container) Backend() *backend.Client {
	return c.backend
}

func (c *Container) Sessions() *session.Manager {
	return c.sessions
}

func (c *Container) RateLimiter() *middleware.RateLimiter {
	return c.limiter
}

func (c *Container) SearchScreens() *screens.Registry[*search.Screen] {
	return c.searches
}

func (c *Container) UserScreens() *screens.Registry[*user.Screen] {
	return c.users
}

// Close cleans up resources
func (c *Container) Close() error {
	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
