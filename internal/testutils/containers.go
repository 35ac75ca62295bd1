// Package testutils starts throwaway backing services for integration tests
package testutils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a running test dependency
type Container struct {
	container testcontainers.Container
}

// Terminate stops and removes the container
func (c *Container) Terminate(ctx context.Context) error {
	if c == nil || c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}

// PostgresContainer exposes a Postgres connection URL
type PostgresContainer struct {
	Container
	URL string
}

// RedisContainer exposes a host:port Redis/Valkey address
type RedisContainer struct {
	Container
	Address string
}

// MinIOContainer exposes a MinIO endpoint and credentials
type MinIOContainer struct {
	Container
	Endpoint  string
	AccessKey string
	SecretKey string
}

// StartPostgres runs a PostgreSQL container
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	pg, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("arty"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	url, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx) //nolint:errcheck // cleanup in error path
		return nil, fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return &PostgresContainer{Container: Container{container: pg}, URL: url}, nil
}

// StartRedis runs a Valkey container (Redis-compatible)
func StartRedis(ctx context.Context) (*RedisContainer, error) {
	rc, err := redisModule.Run(ctx,
		"valkey/valkey:7-alpine",
		redisModule.WithLogLevel(redisModule.LogLevelVerbose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start valkey container: %w", err)
	}

	endpoint, err := rc.ConnectionString(ctx)
	if err != nil {
		_ = rc.Terminate(ctx) //nolint:errcheck // cleanup in error path
		return nil, fmt.Errorf("failed to get valkey endpoint: %w", err)
	}

	return &RedisContainer{
		Container: Container{container: rc},
		Address:   strings.TrimPrefix(endpoint, "redis://"),
	}, nil
}

// StartMinIO runs a MinIO container
func StartMinIO(ctx context.Context) (*MinIOContainer, error) {
	const user, pass = "testuser", "testpass123"

	mc, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(user),
		minio.WithPassword(pass),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start minio container: %w", err)
	}

	endpoint, err := mc.ConnectionString(ctx)
	if err != nil {
		_ = mc.Terminate(ctx) //nolint:errcheck // cleanup in error path
		return nil, fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	return &MinIOContainer{
		Container: Container{container: mc},
		Endpoint:  endpoint,
		AccessKey: user,
		SecretKey: pass,
	}, nil
}
