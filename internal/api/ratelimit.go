package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an idle client keeps its bucket.
	limiterIdleTTL = 10 * time.Minute
	// limiterSweepInterval is how often idle buckets are pruned.
	limiterSweepInterval = time.Minute
)

// perMinute converts a requests-per-minute budget to a rate.Limit.
func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(n) / 60.0)
}

// clientLimiter keeps a token bucket per client key in an in-memory map.
// Buckets for clients that go quiet are swept periodically so the map does
// not grow without bound.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
	done    chan struct{}
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	cl := &clientLimiter{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		done:    make(chan struct{}),
	}
	go cl.sweep()
	return cl
}

// Allow reports whether the client identified by key may proceed.
func (cl *clientLimiter) Allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	bucket, ok := cl.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[key] = bucket
	}
	bucket.lastSeen = time.Now()
	return bucket.limiter.Allow()
}

// sweep prunes buckets that have been idle past the TTL.
func (cl *clientLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)
			cl.mu.Lock()
			for key, bucket := range cl.clients {
				if bucket.lastSeen.Before(cutoff) {
					delete(cl.clients, key)
				}
			}
			cl.mu.Unlock()
		}
	}
}

// Close stops the background sweeper.
func (cl *clientLimiter) Close() {
	select {
	case <-cl.done:
	default:
		close(cl.done)
	}
}

// clientKey identifies a client for rate limiting: the first
// X-Forwarded-For hop when present (the proxy usually sits behind an edge),
// otherwise the remote IP.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
