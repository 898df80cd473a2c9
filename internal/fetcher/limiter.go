package fetcher

import (
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// hostLimiter paces requests to one host. It speeds up 20% after each
// success and halves after a 429, staying within [start/4, start*2].
type hostLimiter struct {
	*rate.Limiter

	mu      sync.Mutex
	host    string
	floor   rate.Limit
	ceiling rate.Limit
	current rate.Limit
}

func newHostLimiter(host string, start rate.Limit, burst int) *hostLimiter {
	return &hostLimiter{
		Limiter: rate.NewLimiter(start, burst),
		host:    host,
		floor:   start / 4,
		ceiling: start * 2,
		current: start,
	}
}

func (h *hostLimiter) scale(factor float64) rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = min(max(h.current*rate.Limit(factor), h.floor), h.ceiling)
	h.SetLimit(h.current)
	return h.current
}

func (h *hostLimiter) speedUp() { h.scale(1.2) }

func (h *hostLimiter) slowDown() {
	r := h.scale(0.5)
	zap.L().Warn("rate limited, slowing down",
		zap.String("component", "fetcher"),
		zap.String("host", h.host),
		zap.Float64("rate", float64(r)),
	)
}

// Limit returns the current rate.
func (h *hostLimiter) Limit() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// hostLimiters hands out one limiter per host.
type hostLimiters struct {
	mu    sync.Mutex
	start rate.Limit
	burst int
	hosts map[string]*hostLimiter
}

func (l *hostLimiters) get(rawURL string) *hostLimiter {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.hosts[host]; ok {
		return h
	}
	h := newHostLimiter(host, l.start, l.burst)
	l.hosts[host] = h
	return h
}
