// Package backend is a typed client for the image search backend
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"arty-web/internal/config"
	"arty-web/internal/observability"
	"arty-web/internal/platform/cache"
)

const (
	instrumentationName = "arty-web/backend"
	maxResponseBytes    = 10 << 20
	listingCacheKey     = "listing:root"
)

// Client calls the backend's JSON endpoints
type Client struct {
	baseURL    string
	publicURL  string
	httpClient *http.Client
	logger     *observability.Logger
	duration   metric.Float64Histogram

	listingCache *cache.RedisClient
	listingTTL   time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithListingCache serves the root listing from Redis for ttl
func WithListingCache(rc *cache.RedisClient, ttl time.Duration) Option {
	return func(c *Client) {
		c.listingCache = rc
		c.listingTTL = ttl
	}
}

// New builds a client for cfg.BaseURL
func New(cfg config.BackendConfig, logger *observability.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	duration, err := otel.Meter(instrumentationName).Float64Histogram(
		"arty.backend.request.duration",
		metric.WithDescription("Duration of backend API calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend metrics: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.BaseURL
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "backend " + r.Method + " " + r.URL.Path
				}),
			),
		},
		logger:   logger.Component("backend"),
		duration: duration,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GeneratedImageURL maps a generated image filename to its public static URL
func (c *Client) GeneratedImageURL(filename string) string {
	return c.publicURL + "/static/generations/" + filename
}

// Listing fetches the initial image list from GET /
func (c *Client) Listing(ctx context.Context) ([]string, error) {
	if c.listingCache != nil {
		var cached []string
		err := c.listingCache.Get(ctx, listingCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn(ctx).Err(err).Msg("Listing cache read failed")
		}
	}

	var urls []string
	if err := c.do(ctx, http.MethodGet, "/", nil, decodeJSON(&urls)); err != nil {
		return nil, err
	}
	if urls == nil {
		return nil, decodeError(errors.New("listing is null"))
	}

	if c.listingCache != nil {
		if err := c.listingCache.Set(ctx, listingCacheKey, urls, c.listingTTL); err != nil {
			c.logger.Warn(ctx).Err(err).Msg("Listing cache write failed")
		}
	}

	return urls, nil
}

// Search posts the query and returns the response object's values in enumeration order
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	var urls []string
	err := c.do(ctx, http.MethodPost, "/search", searchRequest{Query: query}, func(r io.Reader) error {
		values, err := decodeObjectValues(r)
		if err != nil {
			return decodeError(err)
		}
		urls = values
		return nil
	})
	return urls, err
}

// SavedImages returns the sd_image_path of every saved image for the user
func (c *Client) SavedImages(ctx context.Context, id UserID) ([]string, error) {
	if id.IsZero() {
		return nil, ErrMissingUserID
	}

	var records []savedImageRecord
	if err := c.do(ctx, http.MethodPost, "/backend/saved_image/get/user", userRequest{UserID: id}, decodeJSON(&records)); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	return paths, nil
}

func (c *Client) InsertSavedImage(ctx context.Context, id UserID, path string) error {
	if id.IsZero() {
		return ErrMissingUserID
	}
	return c.do(ctx, http.MethodPost, "/backend/saved_image/insert", savedImageRequest{UserID: id, Path: path}, nil)
}

func (c *Client) DeleteSavedImage(ctx context.Context, id UserID, path string) error {
	return c.do(ctx, http.MethodDelete, "/backend/saved_image/delete", savedImageRequest{UserID: id, Path: path}, nil)
}

// GeneratedImages returns the user's generated images as public static URLs
func (c *Client) GeneratedImages(ctx context.Context, id UserID) ([]string, error) {
	if id.IsZero() {
		return nil, ErrMissingUserID
	}

	var filenames []string
	if err := c.do(ctx, http.MethodPost, "/backend/generate_image/get/user", userRequest{UserID: id}, decodeJSON(&filenames)); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(filenames))
	for _, name := range filenames {
		urls = append(urls, c.GeneratedImageURL(name))
	}
	return urls, nil
}

func (c *Client) InsertGeneratedImage(ctx context.Context, id UserID, path string) error {
	if id.IsZero() {
		return ErrMissingUserID
	}
	return c.do(ctx, http.MethodPost, "/backend/generate_image/insert", generatedImageRequest{UserID: id, Path: path}, nil)
}

func (c *Client) DeleteGeneratedImage(ctx context.Context, id UserID, path string) error {
	return c.do(ctx, http.MethodDelete, "/backend/generate_image/delete", generatedImageRequest{UserID: id, Path: path}, nil)
}

// UserID looks up the id registered for email
func (c *Client) UserID(ctx context.Context, email string) (UserID, error) {
	var resp userIDResponse
	if err := c.do(ctx, http.MethodPost, "/backend/users/get_id", emailRequest{Email: email}, decodeJSON(&resp)); err != nil {
		return "", err
	}
	if resp.UserID.IsZero() {
		return "", decodeError(errors.New("response has no user_id"))
	}
	return resp.UserID, nil
}

// User fetches the profile for id
func (c *Client) User(ctx context.Context, id UserID) (*User, error) {
	if id.IsZero() {
		return nil, ErrMissingUserID
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/backend/users/get", userRequest{UserID: id}, decodeJSON(&user)); err != nil {
		return nil, err
	}
	return &user, nil
}

// InvalidateListing drops the cached root listing
func (c *Client) InvalidateListing(ctx context.Context) error {
	if c.listingCache == nil {
		return nil
	}
	return c.listingCache.Delete(ctx, listingCacheKey)
}

func decodeJSON(out any) func(io.Reader) error {
	return func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(out); err != nil {
			return decodeError(err)
		}
		return nil
	}
}

// do sends body as JSON and hands a 2xx response body to decode
func (c *Client) do(ctx context.Context, method, path string, body any, decode func(io.Reader) error) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		semconv.HTTPRequestMethodKey.String(method),
		semconv.URLPath(path),
		semconv.HTTPResponseStatusCode(status),
	))
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, limited) //nolint:errcheck // drain for connection reuse
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}

	if decode == nil {
		_, _ = io.Copy(io.Discard, limited) //nolint:errcheck // drain for connection reuse
		return nil
	}

	return decode(limited)
}
