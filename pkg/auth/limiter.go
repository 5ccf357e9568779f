package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Defaults applied when the security config carries no rate limit.
const (
	fallbackRPS   = 5
	fallbackBurst = 10
)

// limiterPool hands out one token bucket per caller key. Authenticated
// requests are keyed by API key, anonymous ones by client IP, so a noisy
// anonymous client never drains a keyed caller's bucket. Buckets are
// created lazily and kept for the life of the pool.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	cfg     SecConfig
}

// Allow reports whether the caller identified by key may proceed.
func (p *limiterPool) Allow(key string) bool {
	return p.bucket(key).Allow()
}

func (p *limiterPool) bucket(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buckets == nil {
		p.buckets = make(map[string]*rate.Limiter)
	}
	l, ok := p.buckets[key]
	if !ok {
		rps := p.cfg.RPS
		if rps <= 0 {
			rps = fallbackRPS
		}
		burst := p.cfg.Burst
		if burst <= 0 {
			burst = fallbackBurst
		}
		l = rate.NewLimiter(rate.Limit(rps), burst)
		p.buckets[key] = l
	}
	return l
}
