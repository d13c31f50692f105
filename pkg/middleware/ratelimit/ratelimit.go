// Package ratelimit limits the request rate of every client IP with a token bucket.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Option func(*Limiter)

// WithLimitHandler sets the handler that answers requests over the limit.
func WithLimitHandler(h http.Handler) Option {
	return func(l *Limiter) {
		l.onLimit = h
	}
}

// WithClock sets the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter allows every client up to max requests at once, refilled evenly over window.
// Clients idle for longer than window are forgotten.
type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
	onLimit   http.Handler
}

func New(window time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		window:   window,
		now:      time.Now,
		onLimit:  http.HandlerFunc(tooManyRequests),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastSweep = l.now()

	return l
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) > l.window {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (l *Limiter) retryAfter() string {
	secs := math.Ceil(1 / float64(l.limit))
	return strconv.Itoa(int(math.Max(secs, 1)))
}

// Handler rate limits next by the client IP in r.RemoteAddr.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}

		if !l.allow(key) {
			w.Header().Set("Retry-After", l.retryAfter())
			l.onLimit.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
