// Package ratelimit provides per-source rate limiting built on
// golang.org/x/time/rate.
//
// Limiting is purely local to this process; coordinating limits across
// replicas is out of scope.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond with no bursting:
// two events are never allowed within 1/requestsPerSecond of each other.
func New(requestsPerSecond float64) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// NewWithInterval creates a limiter enforcing a minimum interval between events.
func NewWithInterval(minInterval time.Duration) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Allow reports whether an event may happen now, consuming a token if so.
// A denied call does not delay the next permitted one.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// SetLimit updates the rate limit.
func (l *Limiter) SetLimit(requestsPerSecond float64) {
	l.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// Registry holds one limiter per named source (exchange, feed, ...),
// creating limiters lazily with the source's configured rate.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	rates    map[string]float64
	fallback float64
}

// NewRegistry creates a registry. rates maps source name to allowed requests
// per second; sources absent from the map use fallbackRPS.
func NewRegistry(rates map[string]float64, fallbackRPS float64) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		rates:    rates,
		fallback: fallbackRPS,
	}
}

// Allow reports whether a request to the named source may happen now.
func (r *Registry) Allow(source string) bool {
	return r.get(source).Allow()
}

func (r *Registry) get(source string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[source]; ok {
		return l
	}

	rps, ok := r.rates[source]
	if !ok || rps <= 0 {
		rps = r.fallback
	}
	l := New(rps)
	r.limiters[source] = l
	return l
}
