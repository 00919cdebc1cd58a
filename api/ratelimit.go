package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/haven/pkg/llm"
)

const (
	msgRateLimited = "Rate limit exceeded, try again later."

	defaultRateBurst = 10

	// limiterIdle is how long a caller's limiter is kept without traffic.
	limiterIdle = 10 * time.Minute
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiter hands out one token bucket per caller.
type limiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	callers   map[string]*callerLimiter
	lastSweep time.Time
	now       func() time.Time
}

// newLimiter returns nil when perSecond is not positive, which disables
// limiting.
func newLimiter(perSecond float64, burst int) *limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return &limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		callers: make(map[string]*callerLimiter),
		now:     time.Now,
	}
}

func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdle {
		for k, c := range l.callers {
			if now.Sub(c.lastSeen) > limiterIdle {
				delete(l.callers, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.callers[key]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// rateLimit rejects callers over their budget. Callers are told apart by
// user header and remote address.
func (s *Server) rateLimit(c *fiber.Ctx) error {
	l := s.limiter.Load()
	if l == nil {
		return c.Next()
	}

	key := s.headerHandler.User(c) + "|" + c.IP()
	if !l.allow(key) {
		s.logger.Warn("rate limit exceeded", "caller", key, "path", c.Path())
		return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{Error: msgRateLimited})
	}
	return c.Next()
}

// SetRateLimit replaces the per-caller limits. Callers start with fresh
// buckets. A non-positive perSecond disables limiting.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	s.limiter.Store(newLimiter(perSecond, burst))
	s.logger.Info("rate limit updated", "rate_limit", perSecond, "rate_burst", burst)
}
