package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/EngCalc/calc-backend/internal/utils"
	"golang.org/x/time/rate"
)

type peerKey struct{}

// PeerAddr records the socket address of the connection before anything
// rewrites r.RemoteAddr from forwarding headers. Install it ahead of
// chimw.RealIP.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PeerFromContext returns the address stored by PeerAddr.
func PeerFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(peerKey{}).(string)
	return addr, ok
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	trusted   []netip.Prefix
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type RateLimitOption func(*RateLimiter)

// TrustProxies makes the limiter key on the forwarded client address when
// the connection comes from one of prefixes. Forwarding headers from any
// other peer are ignored.
func TrustProxies(prefixes []netip.Prefix) RateLimitOption {
	return func(rl *RateLimiter) { rl.trusted = prefixes }
}

// IdleTimeout sets how long an untouched bucket is kept.
func IdleTimeout(d time.Duration) RateLimitOption {
	return func(rl *RateLimiter) { rl.idle = d }
}

func WithRateClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
// A perMinute of zero or less disables limiting.
func NewRateLimiter(perMinute, burst int, opts ...RateLimitOption) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
	if rl.limit > 0 {
		// An idle bucket is dropped only once it would have refilled.
		rl.idle = time.Duration(float64(burst) / float64(rl.limit) * float64(time.Second))
	}
	if rl.idle < time.Minute {
		rl.idle = time.Minute
	}
	for _, opt := range opts {
		opt(rl)
	}
	rl.lastSweep = rl.now()
	return rl
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idle {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len reports how many client buckets are held.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(rl.clientIP(r)) {
			retry := time.Duration(float64(time.Second) / float64(rl.limit))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			utils.WriteError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the socket peer, or the forwarded address when the peer is a
// trusted proxy.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer, ok := PeerFromContext(r.Context())
	if !ok {
		peer = r.RemoteAddr
	}
	peer = hostOnly(peer)
	if addr, err := netip.ParseAddr(peer); err == nil && rl.isTrusted(addr.Unmap()) {
		return hostOnly(r.RemoteAddr)
	}
	return peer
}

func (rl *RateLimiter) isTrusted(addr netip.Addr) bool {
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
