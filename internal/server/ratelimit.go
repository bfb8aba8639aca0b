package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiters hands out one token bucket per client address. The set is
// dropped wholesale by housekeeping so idle clients do not accumulate.
type ipLimiters struct {
	every time.Duration
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newIPLimiters(every time.Duration, burst int) *ipLimiters {
	if every <= 0 {
		every = 600 * time.Millisecond
	}
	return &ipLimiters{every: every, burst: burst, buckets: make(map[string]*rate.Limiter)}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.buckets[ip] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

func (l *ipLimiters) reset() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.buckets)
	l.buckets = make(map[string]*rate.Limiter)
	return n
}

// getClientIP prefers the first proxy hop, then X-Real-IP, then the socket peer.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
