package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a minimum delay between requests to the same host.
// Each host gets its own token bucket holding a single token.
type HostLimiter struct {
	mu       sync.Mutex
	hosts    map[string]*rate.Limiter
	minDelay time.Duration
}

// NewHostLimiter creates a limiter that spaces consecutive requests to the
// same host by at least minDelay. A zero minDelay never blocks.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		hosts:    make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

func (r *HostLimiter) limiter(host string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.hosts[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(r.minDelay), 1)
		r.hosts[host] = l
	}
	return l
}

// Wait blocks until a request to host may start. Concurrent callers queue
// up minDelay apart. Returns an error if the context is cancelled, or its
// deadline falls before the slot.
func (r *HostLimiter) Wait(ctx context.Context, host string) error {
	if r == nil || r.minDelay <= 0 {
		return nil
	}
	if err := r.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// WaitURL is Wait keyed by the host of rawURL. Unparseable URLs are not limited.
func (r *HostLimiter) WaitURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return r.Wait(ctx, u.Host)
}
