package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

type clientBucket struct {
	*rate.Limiter
	seen time.Time
}

// clientLimiters hands out one token bucket per client address. A bucket
// refills at perMinute/60 tokens per second and holds up to perMinute
// tokens. Idle buckets are swept until done is closed.
type clientLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	perMinute int
}

func newClientLimiters(perMinute int, done <-chan struct{}) *clientLimiters {
	cl := &clientLimiters{
		buckets:   make(map[string]*clientBucket, 64),
		perMinute: perMinute,
	}

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				cl.sweep(now)
			case <-done:
				return
			}
		}
	}()

	return cl
}

// allow takes one token from the bucket of client.
func (cl *clientLimiters) allow(client string) bool {
	now := time.Now()

	cl.mu.Lock()

	b, ok := cl.buckets[client]
	if !ok {
		b = &clientBucket{
			Limiter: rate.NewLimiter(rate.Limit(float64(cl.perMinute)/60), cl.perMinute),
		}
		cl.buckets[client] = b
	}

	b.seen = now

	cl.mu.Unlock()

	return b.AllowN(now, 1)
}

func (cl *clientLimiters) sweep(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for client, b := range cl.buckets {
		if now.Sub(b.seen) > limiterIdleTTL {
			delete(cl.buckets, client)
		}
	}
}

func (cl *clientLimiters) len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return len(cl.buckets)
}

// rateLimitMiddleware rejects clients exceeding requestsPerMinute with 429.
func (s *server) rateLimitMiddleware(
	requestsPerMinute int,
) func(http.Handler) http.Handler {
	limiters := newClientLimiters(requestsPerMinute, s.done)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests,
					errorResponse{"rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the first X-Forwarded-For hop, or the host part of
// RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
