package util

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces requests per board host. Hosts are compared without a
// leading "www." so jobindex.dk and www.jobindex.dk share one rate.
type HostLimiter struct {
	mu        sync.Mutex
	perHost   map[string]*rate.Limiter
	overrides map[string]rate.Limit
	every     rate.Limit
	burst     int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		perHost:   map[string]*rate.Limiter{},
		overrides: map[string]rate.Limit{},
		every:     rate.Limit(reqPerSec),
		burst:     burst,
	}
}

// Slow caps host at reqPerSec when that is below the default rate. It must
// be called before the first request to host.
func (hl *HostLimiter) Slow(host string, reqPerSec float64) *HostLimiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if r := rate.Limit(reqPerSec); r < hl.every {
		hl.overrides[hostKey(host)] = r
	}
	return hl
}

func hostKey(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndexByte(h, ':'); i > 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	return strings.TrimPrefix(h, "www.")
}

func (hl *HostLimiter) forHost(host string) *rate.Limiter {
	key := hostKey(host)
	hl.mu.Lock()
	defer hl.mu.Unlock()
	if lim, ok := hl.perHost[key]; ok {
		return lim
	}
	r, ok := hl.overrides[key]
	if !ok {
		r = hl.every
	}
	lim := rate.NewLimiter(r, hl.burst)
	hl.perHost[key] = lim
	return lim
}

// WaitURL blocks until a request to raw's host is allowed. A nil limiter
// only checks ctx.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return ctx.Err()
	}
	host := "_"
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	return hl.forHost(host).Wait(ctx)
}
