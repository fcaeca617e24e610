package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
)

const (
	maxVisitors = 10000
	visitorTTL  = 10 * time.Minute
)

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter is a per-client token bucket. Idle clients age out of a bounded
// LRU.
type Limiter struct {
	mu       sync.Mutex
	visitors *expirable.LRU[string, *visitor]
	rate     float64
	burst    float64
	clock    clockwork.Clock
}

func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return newLimiter(requestsPerSecond, burst, clockwork.NewRealClock())
}

func newLimiter(requestsPerSecond float64, burst int, clock clockwork.Clock) *Limiter {
	return &Limiter{
		visitors: expirable.NewLRU[string, *visitor](maxVisitors, nil, visitorTTL),
		rate:     requestsPerSecond,
		burst:    float64(burst),
		clock:    clock,
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	v, exists := l.visitors.Get(key)
	if !exists {
		l.visitors.Add(key, &visitor{tokens: l.burst - 1, lastSeen: now})
		return true
	}

	v.tokens += now.Sub(v.lastSeen).Seconds() * l.rate
	v.lastSeen = now
	if v.tokens > l.burst {
		v.tokens = l.burst
	}

	if v.tokens < 1 {
		return false
	}

	v.tokens--
	return true
}

// ClientKey is the first X-Forwarded-For hop, or the connection address.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(ClientKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "10")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
