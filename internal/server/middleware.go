package server

import (
	"container/list"
	"context"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// CORSMiddleware answers cross-origin requests from origins. An empty list
// disables CORS headers; "*" allows any origin.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		allowAll := slices.Contains(origins, "*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || slices.Contains(origins, origin)) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; connect-src 'self'; frame-ancestors 'none'")
			next.ServeHTTP(w, r)
		})
	}
}

const (
	limiterIdle     = 10 * time.Minute
	limiterSweep    = 5 * time.Minute
	evictionLogRate = 30 * time.Second
)

type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a token bucket per client IP. At most maxIPs
// buckets are tracked; the least recently used one is evicted when full.
// A sweeper drops idle buckets until ctx is cancelled, and the returned
// channel closes once it has stopped.
func RateLimitMiddleware(ctx context.Context, rps float64, burst, maxIPs int, log zerolog.Logger) (func(http.Handler) http.Handler, <-chan struct{}) {
	if maxIPs <= 0 {
		maxIPs = 10000
	}

	var (
		mu        sync.Mutex
		items     = make(map[string]*list.Element)
		order     = list.New() // front is most recent
		lastLog   time.Time
		evictions int
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				now := time.Now()
				for e := order.Back(); e != nil; {
					prev := e.Prev()
					if lim := e.Value.(*ipLimiter); now.Sub(lim.lastSeen) > limiterIdle {
						order.Remove(e)
						delete(items, lim.ip)
					}
					e = prev
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()
		if e, ok := items[ip]; ok {
			order.MoveToFront(e)
			lim := e.Value.(*ipLimiter)
			lim.lastSeen = time.Now()
			return lim.limiter.Allow()
		}

		if order.Len() >= maxIPs {
			back := order.Back()
			order.Remove(back)
			delete(items, back.Value.(*ipLimiter).ip)
			evictions++
			if time.Since(lastLog) >= evictionLogRate {
				log.Warn().Int("evicted", evictions).Int("capacity", maxIPs).Msg("rate limiter at capacity")
				lastLog = time.Now()
				evictions = 0
			}
		}
		lim := &ipLimiter{ip: ip, limiter: rate.NewLimiter(rate.Limit(rps), burst), lastSeen: time.Now()}
		items[ip] = order.PushFront(lim)
		return lim.limiter.Allow()
	}

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return mw, done
}

// clientIP returns the peer address, or the forwarded client address when
// the peer is a loopback or private proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer != nil && (peer.IsLoopback() || peer.IsPrivate()) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	if peer != nil {
		return peer.String()
	}
	return host
}
