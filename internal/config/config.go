// Package config provides application configuration management
// with validation and environment parsing
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMinIO    = "minio"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	DatabaseURL string
	Backend     BackendConfig
	Session     SessionConfig
	Cache       CacheConfig
	Storage     StorageConfig
	RateLimit   RateLimitConfig
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// BackendConfig holds the image backend connection settings
type BackendConfig struct {
	// BaseURL is the origin the server calls
	BaseURL string
	// PublicURL is the origin browsers use for static generation files
	PublicURL string
	Timeout   time.Duration
	// RollbackOnFailure reverts an optimistic save/unsave when the backend call fails
	RollbackOnFailure bool
}

// SessionConfig holds the per-browser session settings
type SessionConfig struct {
	Store      string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// CacheConfig holds Redis/Valkey connection settings
type CacheConfig struct {
	Enabled         bool
	Address         string
	Password        string
	Database        int
	DefaultTTL      time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
}

// StorageConfig holds preview object storage configuration
type StorageConfig struct {
	Backend         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
	MaxUploadSize   int64
	AllowedTypes    []string
}

// RateLimitConfig holds the per-IP limiter settings
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Burst    int
	// TrustedProxies are the CIDRs whose forwarding headers name the client
	TrustedProxies []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	maxUploadSize := parseSize(getEnv("MAX_UPLOAD_SIZE", "10MB"))
	allowedTypes := parseList(getEnv("ALLOWED_FILE_TYPES", "image/png,image/jpeg"))

	readTimeout, _ := time.ParseDuration(getEnv("READ_TIMEOUT", "15s"))
	writeTimeout, _ := time.ParseDuration(getEnv("WRITE_TIMEOUT", "60s"))
	idleTimeout, _ := time.ParseDuration(getEnv("SERVER_TIMEOUT", "60s"))

	backendTimeout, _ := time.ParseDuration(getEnv("BACKEND_TIMEOUT", "30s"))
	rollback, _ := strconv.ParseBool(getEnv("SAVE_ROLLBACK_ON_FAILURE", "false"))

	sessionTTL, _ := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	secureCookie, _ := strconv.ParseBool(getEnv("SESSION_SECURE_COOKIE", "false"))

	cacheEnabled, _ := strconv.ParseBool(getEnv("CACHE_ENABLED", "false"))
	cacheTTL, _ := time.ParseDuration(getEnv("CACHE_TTL", "1m"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	rateEnabled, _ := strconv.ParseBool(getEnv("RATE_LIMIT_ENABLED", "true"))
	rateRequests, _ := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "20"))
	rateWindow, _ := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1s"))
	rateBurst, _ := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))

	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:5000"), "/")

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Backend: BackendConfig{
			BaseURL:           backendURL,
			PublicURL:         strings.TrimRight(getEnv("BACKEND_PUBLIC_URL", backendURL), "/"),
			Timeout:           backendTimeout,
			RollbackOnFailure: rollback,
		},
		Session: SessionConfig{
			Store:      strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
			TTL:        sessionTTL,
			CookieName: getEnv("SESSION_COOKIE", "arty_session"),
			Secure:     secureCookie,
		},
		Cache: CacheConfig{
			Enabled:         cacheEnabled,
			Address:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			Database:        redisDB,
			DefaultTTL:      cacheTTL,
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolSize:        10,
			MinIdleConns:    2,
			PoolTimeout:     4 * time.Second,
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(getEnv("PREVIEW_STORE", StoreMemory)),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "previews"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			MaxUploadSize:   maxUploadSize,
			AllowedTypes:    allowedTypes,
		},
		RateLimit: RateLimitConfig{
			Enabled:  rateEnabled,
			Requests: rateRequests,
			Window:   rateWindow,
			Burst:    rateBurst,

			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// NeedsRedis reports whether any component is configured to use Redis/Valkey
func (c *Config) NeedsRedis() bool {
	return c.Cache.Enabled || c.Session.Store == StoreRedis
}

// NeedsDatabase reports whether the Postgres session store is selected
func (c *Config) NeedsDatabase() bool {
	return c.Session.Store == StorePostgres
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" into bytes
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	if strings.HasSuffix(sizeStr, "MB") {
		numStr := strings.TrimSuffix(sizeStr, "MB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024 * 1024
		}
	}

	if strings.HasSuffix(sizeStr, "KB") {
		numStr := strings.TrimSuffix(sizeStr, "KB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024
		}
	}

	// Default to 10MB if parsing fails
	return 10 * 1024 * 1024
}

// parseList parses comma-separated strings into slices
func parseList(listStr string) []string {
	if listStr == "" {
		return []string{}
	}

	items := strings.Split(listStr, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
