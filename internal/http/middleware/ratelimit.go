package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/spackmon-backend/internal/http/response"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// Rate is a request budget such as 1000 requests per day.
type Rate struct {
	Count  int
	Period time.Duration
}

var rateUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseRate reads "N/period" where period is an optional multiplier and one of s, m, h or d:
// "10/s", "1000/1d", "50/15m".
func ParseRate(raw string) (Rate, error) {
	countStr, periodStr, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return Rate{}, fmt.Errorf("rate %q must look like N/period", raw)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count <= 0 {
		return Rate{}, fmt.Errorf("rate %q has an invalid count", raw)
	}
	periodStr = strings.ToLower(strings.TrimSpace(periodStr))
	if periodStr == "" {
		return Rate{}, fmt.Errorf("rate %q has no period", raw)
	}
	unit, ok := rateUnits[periodStr[len(periodStr)-1:]]
	if !ok {
		return Rate{}, fmt.Errorf("rate %q has an unknown period unit", raw)
	}
	mult := 1
	if n := periodStr[:len(periodStr)-1]; n != "" {
		if mult, err = strconv.Atoi(n); err != nil || mult <= 0 {
			return Rate{}, fmt.Errorf("rate %q has an invalid period", raw)
		}
	}
	return Rate{Count: count, Period: time.Duration(mult) * unit}, nil
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	log     *logger.Logger
	rate    Rate
	block   bool
	mu      sync.Mutex
	clients map[string]*clientLimiter
	swept   time.Time
	now     func() time.Time
}

// NewRateLimiter enforces r per client. With block false an exhausted client is only logged.
func NewRateLimiter(log *logger.Logger, r Rate, block bool) *RateLimiter {
	return &RateLimiter{
		log:     log.With("middleware", "RateLimiter"),
		rate:    r,
		block:   block,
		clients: map[string]*clientLimiter{},
		now:     time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	if now.Sub(rl.swept) > time.Minute {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.rate.Period {
				delete(rl.clients, k)
			}
		}
		rl.swept = now
	}
	cl, ok := rl.clients[key]
	if !ok {
		every := rate.Every(rl.rate.Period / time.Duration(rl.rate.Count))
		cl = &clientLimiter{limiter: rate.NewLimiter(every, rl.rate.Count)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.allow(c.ClientIP()) {
			c.Next()
			return
		}
		if !rl.block {
			rl.log.Warn("rate limit exceeded", "client_ip", c.ClientIP(), "path", c.FullPath())
			c.Next()
			return
		}
		response.AbortError(c, http.StatusTooManyRequests, "rate_limited",
			fmt.Errorf("rate limit of %d requests per %s exceeded", rl.rate.Count, rl.rate.Period))
	}
}
