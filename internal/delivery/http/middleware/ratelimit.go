package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/user/scrapex-service/internal/delivery/http/response"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = time.Hour
)

// RateLimiter keeps one token bucket per principal. Idle buckets expire.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.limiters.Add(key, lim)
	return lim
}

// Middleware keys on the authenticated user, falling back to the client IP.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := UserID(r.Context())
		if key == "" {
			key = clientIP(r)
		}
		lim := l.limiter(key)
		if !lim.Allow() {
			retry := time.Second
			if l.rps > 0 {
				retry = time.Duration(float64(time.Second) / float64(l.rps))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
