package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itsivali/virtual-butler/utils"
)

// In-memory sliding-window limiter keyed by authenticated identity, with an
// IP fallback for unauthenticated callers. Memory-efficient and designed to
// be replaced by Redis later.

type timestamps []int64 // unix nanos

func getEnvInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

// IdentityRateLimiter caps write operations per identity inside a sliding
// window. Only admitted attempts count against the budget: a rejected call
// does not extend the caller's lockout, so the window frees up exactly when
// the oldest admitted attempt ages out.
type IdentityRateLimiter struct {
	max         int
	window      time.Duration
	cleanupTick time.Duration
	trustedCIDR []string

	mu    sync.Mutex
	state map[string]timestamps

	// now is swappable in tests
	now func() int64
}

// NewIdentityRateLimiter builds the limiter. Defaults come from
// RATE_WRITE_MAX (10) and RATE_WRITE_WINDOW_SECONDS (60).
func NewIdentityRateLimiter() *IdentityRateLimiter {
	l := &IdentityRateLimiter{
		max:         getEnvInt("RATE_WRITE_MAX", 10),
		window:      getEnvDuration("RATE_WRITE_WINDOW_SECONDS", 60*time.Second),
		cleanupTick: getEnvDuration("RATE_CLEANUP_SECONDS", 60*time.Second),
		state:       make(map[string]timestamps),
		now:         func() int64 { return time.Now().UnixNano() },
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		l.trustedCIDR = strings.Split(v, ",")
	}
	go l.cleanupLoop()
	return l
}

// Allow records the attempt for key if it fits the window and reports
// whether it was admitted, plus the seconds until the window next frees up.
func (l *IdentityRateLimiter) Allow(key string) (bool, int) {
	now := l.now()
	cutoff := now - int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	var kept timestamps
	for _, ts := range l.state[key] {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.state[key] = kept
		oldest := kept[0]
		for _, ts := range kept {
			if ts < oldest {
				oldest = ts
			}
		}
		retryAfter := int((oldest + int64(l.window) - now) / 1e9)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}

	l.state[key] = append(kept, now)
	return true, 0
}

// Middleware applies the limit keyed by the authenticated subject, falling
// back to the client IP when no identity is in context.
func (l *IdentityRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := r.Context().Value(utils.IdentityKey).(string)
		if !ok || key == "" {
			key = "ip:" + clientIPGeneric(r, l.trustedCIDR)
		}

		admitted, retryAfter := l.Allow(key)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.max))
		if !admitted {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many requests, please try again later",
				Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IdentityRateLimiter) cleanupLoop() {
	tick := time.NewTicker(l.cleanupTick)
	defer tick.Stop()
	for range tick.C {
		l.mu.Lock()
		cutoff := l.now() - int64(l.window)
		for k, arr := range l.state {
			var kept timestamps
			for _, ts := range arr {
				if ts >= cutoff {
					kept = append(kept, ts)
				}
			}
			if len(kept) == 0 {
				delete(l.state, k)
			} else {
				l.state[k] = kept
			}
		}
		l.mu.Unlock()
	}
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
