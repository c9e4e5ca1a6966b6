package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass names a group of routes that share one per-client budget
type RouteClass string

const (
	// RouteRead covers snapshot, stats, frame and sound reads
	RouteRead RouteClass = "read"
	// RouteInput covers /api/game commands, which a browser client sends
	// once per animation frame while the pointer moves
	RouteInput RouteClass = "input"
)

// RateLimitConfig sizes one route class's token bucket per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64       // Sustained requests per second per IP
	Burst             int           // Bucket size
	CleanupInterval   time.Duration // Idle buckets are swept after twice this
}

// DefaultRateLimitConfig budgets the read routes
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// DefaultInputRateLimitConfig budgets pointer and start commands: two
// display-rate pointer streams, with a second of slack
var DefaultInputRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 120,
	Burst:             120,
	CleanupInterval:   5 * time.Minute,
}

type clientBucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// ClientLimiter keeps one token bucket per client IP for a single route class.
// Rejections carry the wait until the next token, for Retry-After.
type ClientLimiter struct {
	class RouteClass
	cfg   RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientBucket

	allowed  atomic.Uint64
	rejected atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewClientLimiter starts a limiter and its idle-bucket sweeper.
// Call Stop to end the sweeper.
func NewClientLimiter(class RouteClass, cfg RateLimitConfig) *ClientLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	l := &ClientLimiter{
		class:   class,
		cfg:     cfg,
		clients: make(map[string]*clientBucket),
		stop:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Class returns the route class this limiter budgets
func (l *ClientLimiter) Class() RouteClass { return l.class }

// Stop ends the sweeper. Safe to call more than once.
func (l *ClientLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ClientLimiter) bucket(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.clients[ip]
	if !ok {
		b = &clientBucket{tokens: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[ip] = b
	}
	b.seen = now
	return b.tokens
}

// Allow spends one token for ip. When the bucket is empty it returns false
// and how long the client should wait.
func (l *ClientLimiter) Allow(ip string) (bool, time.Duration) {
	now := time.Now()
	res := l.bucket(ip, now).ReserveN(now, 1)
	if !res.OK() {
		l.rejected.Add(1)
		return false, time.Second
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		l.rejected.Add(1)
		return false, wait
	}
	l.allowed.Add(1)
	return true, 0
}

func (l *ClientLimiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

// sweep forgets clients idle for two cleanup intervals
func (l *ClientLimiter) sweep(now time.Time) {
	cutoff := now.Add(-2 * l.cfg.CleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.clients {
		if b.seen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// Middleware answers 429 with Retry-After once the client's bucket is empty
func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	reason := "rate_limit_" + string(l.class)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(GetClientIP(r))
		if !ok {
			RecordConnectionRejected(reason)
			w.Header().Set("Retry-After", retryAfterSeconds(wait))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds rounds wait up to whole seconds, at least one
func retryAfterSeconds(wait time.Duration) string {
	secs := int64(math.Ceil(wait.Seconds()))
	return strconv.FormatInt(max(secs, 1), 10)
}

// GetStats returns counters for /api/stats
func (l *ClientLimiter) GetStats() map[string]uint64 {
	l.mu.Lock()
	tracked := len(l.clients)
	l.mu.Unlock()

	return map[string]uint64{
		"allowed":  l.allowed.Load(),
		"rejected": l.rejected.Load(),
		"tracked":  uint64(tracked),
	}
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's host. Forwarded headers are only trustworthy behind a proxy.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ConnSlots caps concurrent WebSocket connections per client IP
type ConnSlots struct {
	mu       sync.Mutex
	inUse    map[string]int
	perIP    int
	rejected atomic.Uint64
}

// NewConnSlots allows perIP concurrent connections from each address
func NewConnSlots(perIP int) *ConnSlots {
	return &ConnSlots{inUse: make(map[string]int), perIP: perIP}
}

// Acquire reserves a slot for ip, or reports false when all are taken
func (c *ConnSlots) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inUse[ip] >= c.perIP {
		c.rejected.Add(1)
		return false
	}
	c.inUse[ip]++
	return true
}

// Release frees a slot taken by Acquire
func (c *ConnSlots) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.inUse[ip]; n > 1 {
		c.inUse[ip] = n - 1
	} else {
		delete(c.inUse, ip)
	}
}

// InUse returns the slots currently held by ip
func (c *ConnSlots) InUse(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse[ip]
}

// GetStats returns connection slot counters
func (c *ConnSlots) GetStats() map[string]uint64 {
	c.mu.Lock()
	ips := len(c.inUse)
	c.mu.Unlock()
	return map[string]uint64{
		"rejected": c.rejected.Load(),
		"ips":      uint64(ips),
	}
}

// AllowedOrigins is the default origin list for CORS and WebSocket upgrades.
// Entries may contain one "*" wildcard, as in go-chi/cors.
var AllowedOrigins = []string{
	"http://localhost",
	"http://localhost:*",
	"http://127.0.0.1",
	"http://127.0.0.1:*",
}

// IsAllowedOrigin checks origin against allowed. Requests without an Origin
// header come from non-browser clients and are allowed.
func IsAllowedOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}

	for _, pattern := range allowed {
		if pattern == "*" || pattern == origin {
			return true
		}
		if star := strings.IndexByte(pattern, '*'); star >= 0 {
			prefix, suffix := pattern[:star], pattern[star+1:]
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}

	return false
}
