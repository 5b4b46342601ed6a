package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/campuslink/api/pkg/http"
)

// KeyFunc derives the throttle key for a request
type KeyFunc func(r *http.Request) string

// FixedWindowConfig configures a keyed fixed-window limiter
type FixedWindowConfig struct {
	Window time.Duration
	Max    int
	KeyFn  KeyFunc
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// FixedWindowLimiter counts requests per key in fixed windows held in process
// memory. A window is replaced, not decayed, once its reset time passes.
// Counters survive neither restarts nor horizontal scaling; the limiter is an
// abuse backstop in front of the verification endpoints, not a security
// boundary.
type FixedWindowLimiter struct {
	cfg FixedWindowConfig

	mu      sync.Mutex
	windows map[string]*fixedWindow

	now func() time.Time
}

// NewFixedWindowLimiter creates a limiter; no initialization beyond
// construction is needed and there is no teardown.
func NewFixedWindowLimiter(cfg FixedWindowConfig) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		cfg:     cfg,
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// allow consumes one slot for the key and reports the remaining budget
func (l *FixedWindowLimiter) allow(key string) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &fixedWindow{count: 1, resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
		return true, l.cfg.Max - 1, w.resetAt
	}

	if w.count >= l.cfg.Max {
		return false, 0, w.resetAt
	}

	w.count++
	return true, l.cfg.Max - w.count, w.resetAt
}

// Handler wraps next with the limiter. Limit metadata is exposed on every
// response, allowed or rejected, so clients can self-throttle.
func (l *FixedWindowLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := l.allow(l.cfg.KeyFn(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// KeyByClientAndResumeToken throttles per identity attempt: the client
// address combined with a digest of the presented resume token. The raw token
// never becomes a map key.
func KeyByClientAndResumeToken(ipConfig *pkghttp.IPConfig) KeyFunc {
	return func(r *http.Request) string {
		key := pkghttp.ExtractClientIP(r, ipConfig)
		if token := pkghttp.BearerToken(r); token != "" {
			sum := sha256.Sum256([]byte(token))
			key += ":" + hex.EncodeToString(sum[:8])
		}
		return key
	}
}

// RateLimitConfig holds rate limiting configuration for the coarse per-IP
// limit on public endpoints
type RateLimitConfig struct {
	RequestsPerMinute int
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
		}),
	)
}
