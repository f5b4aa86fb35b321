package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"golang.org/x/time/rate"
)

const msgThrottled = "too many requests"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// throttle keeps one token bucket per origin. Idle buckets are dropped by
// cleanup.
type throttle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
}

func newThrottle(perSecond float64, burst int) *throttle {
	return &throttle{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

func (t *throttle) allow(origin string, now time.Time) bool {
	t.mu.Lock()
	v, ok := t.visitors[origin]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[origin] = v
	}
	v.lastSeen = now
	t.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// cleanup removes visitors not seen since cutoff and returns how many were
// removed.
func (t *throttle) cleanup(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for origin, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, origin)
			n++
		}
	}
	return n
}

// run calls cleanup every interval until ctx is done.
func (t *throttle) run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.cleanup(now.Add(-maxIdle))
		}
	}
}

func (s *Server) throttleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.throttle != nil && !s.throttle.allow(originOf(r), time.Now()) {
			s.log.Debug(r.Context(), "request throttled", "origin", originOf(r))
			writeDenial(w, &guard.Denial{Status: http.StatusTooManyRequests, Message: msgThrottled, Err: common.ErrThrottled})
			return
		}
		next.ServeHTTP(w, r)
	})
}
