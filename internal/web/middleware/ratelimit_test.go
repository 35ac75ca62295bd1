package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arty-web/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Hour, Burst: 2})
	h := l.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/search", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Enabled: false, Requests: 1, Window: time.Hour, Burst: 1})
	for range 10 {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	assert.Zero(t, l.Sweep())
}

func TestRateLimiterSweep(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Enabled: true})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("a"))
	now = now.Add(VisitorTTL / 2)
	require.True(t, l.Allow("b"))

	now = now.Add(VisitorTTL/2 + time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Sweep())
}

func TestRateLimiterIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute, Burst: 1})
	h := l.RealIP(l.Middleware(okHandler()))

	blocked := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.1.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			blocked++
		}
	}
	assert.Equal(t, 49, blocked)
}

func TestRealIP(t *testing.T) {
	l := NewRateLimiter(config.RateLimitConfig{TrustedProxies: []string{"10.0.0.0/8", "192.168.1.1", "not-an-ip"}})

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted peer keeps socket address", "203.0.113.9:1", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.9"},
		{"trusted peer forwards client", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "1.1.1.1"},
		{"spoofed leftmost hop is skipped", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "6.6.6.6, 1.1.1.1, 10.2.0.1"}, "1.1.1.1"},
		{"single trusted address", "192.168.1.1:1", map[string]string{"X-Real-IP": "3.3.3.3"}, "3.3.3.3"},
		{"garbage hop keeps peer", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "bogus"}, "10.0.0.5"},
		{"all hops trusted keeps peer", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "10.9.9.9"}, "10.0.0.5"},
		{"no headers keeps peer", "10.0.0.5:1", nil, "10.0.0.5"},
		{"peer without port", "9.9.9.9", nil, "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			var got string
			l.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
