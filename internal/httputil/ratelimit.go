package httputil

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/orbitwatch/orbitwatch/internal/metrics"
)

// RateLimiter applies a per-client token bucket to incoming requests.
// Each client IP gets its own bucket; buckets idle past the eviction
// window are dropped to keep the map bounded.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	trustProxy bool
	logger     *slog.Logger

	mu      sync.Mutex
	buckets map[string]*clientBucket

	// exempt paths bypass limiting so probes and scrapes never starve.
	exempt map[string]bool
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketIdleEviction = 10 * time.Minute

// NewRateLimiter creates a limiter allowing rps sustained requests with
// the given burst per client IP. The exempt paths are never limited.
func NewRateLimiter(rps float64, burst int, trustProxy bool, exempt []string, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	ex := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		ex[p] = true
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		trustProxy: trustProxy,
		logger:     logger,
		buckets:    make(map[string]*clientBucket),
		exempt:     ex,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[ip] = b

		// Piggyback eviction on bucket creation; no background goroutine.
		for peer, pb := range rl.buckets {
			if now.Sub(pb.lastSeen) > bucketIdleEviction && peer != ip {
				delete(rl.buckets, peer)
			}
		}
	}
	b.lastSeen = now
	return b.limiter
}

// Middleware rejects over-limit requests with 429 and a Retry-After
// hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ip := ClientIP(r, rl.trustProxy)
		if !rl.limiterFor(ip).Allow() {
			metrics.IncRateLimitRejections()
			rl.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)

			retry := 1
			if rl.rps > 0 && rl.rps < 1 {
				retry = int(1 / float64(rl.rps))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
