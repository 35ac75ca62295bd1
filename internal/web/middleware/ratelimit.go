// Package middleware holds HTTP middleware shared by the web handlers
package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"arty-web/internal/config"
)

const (
	defaultRequests = 20
	defaultBurst    = 50

	// VisitorTTL is how long an idle client keeps its limiter
	VisitorTTL = 5 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client IP
type RateLimiter struct {
	enabled bool
	limit   rate.Limit
	burst   int
	now     func() time.Time
	trusted []netip.Prefix

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	requests := cfg.Requests
	if requests <= 0 {
		requests = defaultRequests
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &RateLimiter{
		enabled:  cfg.Enabled,
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		now:      time.Now,
		trusted:  ParseTrustedProxies(cfg.TrustedProxies),
		visitors: make(map[string]*visitor),
	}
}

// ParseTrustedProxies reads CIDRs or single addresses. Entries that fail to parse are skipped.
func ParseTrustedProxies(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

func (l *RateLimiter) visitor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Allow reports whether the client at ip may make one more request now
func (l *RateLimiter) Allow(ip string) bool {
	if !l.enabled {
		return true
	}
	return l.visitor(ip).Allow()
}

// Sweep forgets clients idle for longer than VisitorTTL
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > VisitorTTL {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over quota with 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			http.Error(w, "Too many requests. Please wait a moment.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RealIP rewrites RemoteAddr to the forwarded client address, but only when the
// peer is a trusted proxy. Requests from anyone else keep their socket address.
func (l *RateLimiter) RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip, ok := l.forwardedFor(r); ok {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range l.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedFor walks X-Forwarded-For from the nearest hop, skipping trusted proxies
func (l *RateLimiter) forwardedFor(r *http.Request) (string, bool) {
	if len(l.trusted) == 0 {
		return "", false
	}
	peer, err := netip.ParseAddr(ClientIP(r))
	if err != nil || !l.isTrusted(peer) {
		return "", false
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return "", false
			}
			if !l.isTrusted(hop) {
				return hop.Unmap().String(), true
			}
		}
		return "", false
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String(), true
	}
	return "", false
}

// ClientIP is the host part of RemoteAddr
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
