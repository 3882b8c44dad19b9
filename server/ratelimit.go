package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is an in-memory token bucket per client key.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket. When the bucket is empty it
// returns false and the time until the next refill.
func (rl *rateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{tokens: rl.limit - 1, lastRefill: now}
		return true, 0
	}

	if wait := rl.refill(bucket, now); wait > 0 {
		return false, wait
	}
	bucket.tokens--
	return true, 0
}

// Check reports whether key has a token left without taking it.
func (rl *rateLimiter) Check(key string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		return true, 0
	}
	if wait := rl.refill(bucket, now); wait > 0 {
		return false, wait
	}
	return true, 0
}

// refill tops the bucket up once its window has passed and returns the
// wait until the next refill when it is empty. Callers hold rl.mu.
func (rl *rateLimiter) refill(bucket *tokenBucket, now time.Time) time.Duration {
	if now.Sub(bucket.lastRefill) >= rl.window {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	}
	if bucket.tokens <= 0 {
		return bucket.lastRefill.Add(rl.window).Sub(now)
	}
	return 0
}

// sweep forgets buckets that have been full for a whole window.
func (rl *rateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) >= 2*rl.window {
			delete(rl.buckets, key)
		}
	}
}

// limitRequests authenticates the request and answers 429 once a client has
// used up its requests for the window. Accepted API keys get their own
// bucket; everything else, including rejected keys, counts against the
// client IP, so key guessing is limited before any hash is compared.
func (s *Server) limitRequests(h http.Handler) http.Handler {
	rl := s.limiter
	if rl == nil {
		return s.requireAPIKey(h)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipKey := "ip:" + clientIP(r)
		if allowed, wait := rl.Check(ipKey); !allowed {
			tooManyRequests(w, wait)
			return
		}

		key, ok := s.authenticate(r)
		if !ok {
			rl.Allow(ipKey)
			unauthorized(w)
			return
		}

		bucket := ipKey
		if key != "" {
			bucket = "key:" + key
		}
		if allowed, wait := rl.Allow(bucket); !allowed {
			tooManyRequests(w, wait)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, wait time.Duration) {
	seconds := int(wait.Round(time.Second) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
