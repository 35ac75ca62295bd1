package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var validationErrors ValidationErrors

	validationErrors = append(validationErrors, c.validateServer()...)
	validationErrors = append(validationErrors, c.validateBackend()...)
	validationErrors = append(validationErrors, c.validateSession()...)
	validationErrors = append(validationErrors, c.validateDatabase()...)
	validationErrors = append(validationErrors, c.validateCache()...)
	validationErrors = append(validationErrors, c.validateStorage()...)
	validationErrors = append(validationErrors, c.validateRateLimit()...)

	if c.Logging != nil {
		validationErrors = append(validationErrors, c.validateLogging()...)
	}

	if c.Server != nil {
		validationErrors = append(validationErrors, c.validateServerTimeouts()...)
	}

	if validationErrors.Has() {
		return validationErrors
	}

	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errors ValidationErrors

	if c.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "port",
			Value:   c.Port,
			Message: "port cannot be empty",
		})
	} else {
		if port, err := strconv.Atoi(c.Port); err != nil {
			errors = append(errors, ValidationError{
				Field:   "port",
				Value:   c.Port,
				Message: "port must be a valid integer",
			})
		} else if port < 1 || port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "port",
				Value:   c.Port,
				Message: "port must be between 1 and 65535",
			})
		}
	}

	if c.Environment != "" {
		validEnvs := []string{"development", "production", "test", "staging"}
		if !slices.Contains(validEnvs, c.Environment) {
			errors = append(errors, ValidationError{
				Field:   "environment",
				Value:   c.Environment,
				Message: "environment must be one of: development, production, test, staging",
			})
		}
	}

	return errors
}

func (c *Config) validateBackend() ValidationErrors {
	var errors ValidationErrors

	for field, raw := range map[string]string{
		"backend.base_url":   c.Backend.BaseURL,
		"backend.public_url": c.Backend.PublicURL,
	} {
		if raw == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   raw,
				Message: "backend URL cannot be empty",
			})
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   raw,
				Message: "backend URL must be an absolute http or https URL",
			})
		}
	}

	if c.Backend.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.timeout",
			Value:   c.Backend.Timeout,
			Message: "backend timeout must be greater than 0",
		})
	}

	return errors
}

func (c *Config) validateSession() ValidationErrors {
	var errors ValidationErrors

	validStores := []string{StoreMemory, StoreRedis, StorePostgres}
	if !slices.Contains(validStores, c.Session.Store) {
		errors = append(errors, ValidationError{
			Field:   "session.store",
			Value:   c.Session.Store,
			Message: "session store must be one of: memory, redis, postgres",
		})
	}

	if c.Session.TTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.ttl",
			Value:   c.Session.TTL,
			Message: "session TTL must be greater than 0",
		})
	}

	if c.Session.CookieName == "" {
		errors = append(errors, ValidationError{
			Field:   "session.cookie_name",
			Value:   c.Session.CookieName,
			Message: "session cookie name cannot be empty",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.NeedsDatabase() && c.DatabaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL is required for the postgres session store",
		})
		return errors
	}

	if c.DatabaseURL == "" {
		return errors
	}

	parsedURL, err := url.Parse(c.DatabaseURL)
	if err != nil {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must be a valid URL",
		})
		return errors
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   parsedURL.Scheme,
			Message: "database URL must use postgres or postgresql scheme",
		})
	}

	if parsedURL.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include host",
		})
	}

	if parsedURL.Path == "" || parsedURL.Path == "/" {
		errors = append(errors, ValidationError{
			Field:   "database_url",
			Value:   c.DatabaseURL,
			Message: "database URL must include database name",
		})
	}

	return errors
}

func (c *Config) validateCache() ValidationErrors {
	var errors ValidationErrors

	if !c.NeedsRedis() {
		return errors
	}

	if c.Cache.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "cache.address",
			Value:   c.Cache.Address,
			Message: "redis address is required when cache or redis session store is enabled",
		})
	}

	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		errors = append(errors, ValidationError{
			Field:   "cache.database",
			Value:   c.Cache.Database,
			Message: "redis database must be between 0 and 15",
		})
	}

	return errors
}

func (c *Config) validateStorage() ValidationErrors {
	var errors ValidationErrors

	if c.Storage.Backend != StoreMemory && c.Storage.Backend != StoreMinIO {
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Value:   c.Storage.Backend,
			Message: "preview store must be either 'memory' or 'minio'",
		})
	}

	if c.Storage.Backend == StoreMinIO {
		if c.Storage.Endpoint == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.endpoint",
				Value:   c.Storage.Endpoint,
				Message: "storage endpoint cannot be empty",
			})
		}

		if c.Storage.BucketName == "" {
			errors = append(errors, ValidationError{
				Field:   "storage.bucket_name",
				Value:   c.Storage.BucketName,
				Message: "storage bucket name cannot be empty",
			})
		} else if !isValidBucketName(c.Storage.BucketName) {
			errors = append(errors, ValidationError{
				Field:   "storage.bucket_name",
				Value:   c.Storage.BucketName,
				Message: "storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only",
			})
		}

		if c.Environment == "production" {
			if c.Storage.AccessKeyID == "minioadmin" {
				errors = append(errors, ValidationError{
					Field:   "storage.access_key_id",
					Value:   c.Storage.AccessKeyID,
					Message: "storage access key ID must not use the default for production environment",
				})
			}

			if c.Storage.SecretAccessKey == "minioadmin" {
				errors = append(errors, ValidationError{
					Field:   "storage.secret_access_key",
					Value:   "[REDACTED]",
					Message: "storage secret access key must not use the default for production environment",
				})
			}
		}
	}

	if c.Storage.MaxUploadSize > 0 {
		maxAllowed := int64(100 * 1024 * 1024)
		if c.Storage.MaxUploadSize > maxAllowed {
			errors = append(errors, ValidationError{
				Field:   "storage.max_upload_size",
				Value:   c.Storage.MaxUploadSize,
				Message: fmt.Sprintf("max upload size cannot exceed %d bytes (100MB)", maxAllowed),
			})
		}
	}

	for _, allowed := range c.Storage.AllowedTypes {
		if allowed != "image/png" && allowed != "image/jpeg" {
			errors = append(errors, ValidationError{
				Field:   "storage.allowed_types",
				Value:   allowed,
				Message: "only image/png and image/jpeg previews are supported",
			})
		}
	}

	return errors
}

func (c *Config) validateRateLimit() ValidationErrors {
	var errors ValidationErrors

	for _, proxy := range c.RateLimit.TrustedProxies {
		_, prefixErr := netip.ParsePrefix(proxy)
		_, addrErr := netip.ParseAddr(proxy)
		if prefixErr != nil && addrErr != nil {
			errors = append(errors, ValidationError{
				Field:   "rate_limit.trusted_proxies",
				Value:   proxy,
				Message: "trusted proxy must be an IP address or CIDR",
			})
		}
	}

	if !c.RateLimit.Enabled {
		return errors
	}

	if c.RateLimit.Requests <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.requests",
			Value:   c.RateLimit.Requests,
			Message: "rate limit requests must be greater than 0",
		})
	}

	if c.RateLimit.Window <= 0 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.window",
			Value:   c.RateLimit.Window,
			Message: "rate limit window must be greater than 0",
		})
	}

	if c.RateLimit.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "rate_limit.burst",
			Value:   c.RateLimit.Burst,
			Message: "rate limit burst must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.ContainsFunc(validLevels, func(level string) bool {
		return strings.EqualFold(c.Logging.Level, level)
	}) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "logging level must be one of: debug, info, warn, error",
		})
	}

	validFormats := []string{"json", "console"}
	if !slices.ContainsFunc(validFormats, func(format string) bool {
		return strings.EqualFold(c.Logging.Format, format)
	}) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "logging format must be either 'json' or 'console'",
		})
	}

	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		errors = append(errors, ValidationError{
			Field:   "logging.output",
			Value:   c.Logging.Output,
			Message: "logging output must be either 'stdout' or 'stderr'",
		})
	}

	return errors
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errors ValidationErrors

	if c.Server.ReadTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Value:   c.Server.ReadTimeout,
			Message: "read timeout must be greater than 0",
		})
	} else if c.Server.ReadTimeout > 5*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout",
			Value:   c.Server.ReadTimeout,
			Message: "read timeout should not exceed 5 minutes",
		})
	}

	// Search requests wait on the backend, so the write timeout has to cover the backend timeout
	if c.Server.WriteTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Value:   c.Server.WriteTimeout,
			Message: "write timeout must be greater than 0",
		})
	} else if c.Server.WriteTimeout < c.Backend.Timeout {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout",
			Value:   c.Server.WriteTimeout,
			Message: "write timeout must not be shorter than the backend timeout",
		})
	}

	if c.Server.IdleTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.idle_timeout",
			Value:   c.Server.IdleTimeout,
			Message: "idle timeout must be greater than 0",
		})
	}

	return errors
}

// isValidBucketName validates S3/MinIO bucket naming rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	for i, r := range name {
		if !isLowerAlphaNum(byte(r)) && r != '-' {
			return false
		}

		// No consecutive hyphens
		if i > 0 && r == '-' && name[i-1] == '-' {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
