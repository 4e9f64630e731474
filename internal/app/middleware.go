package app

import (
	"fmt"

	httpMW "github.com/yungbote/spackmon-backend/internal/http/middleware"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) (Middleware, error) {
	log.Info("Wiring middleware...")
	rate, err := httpMW.ParseRate(cfg.RateLimit)
	if err != nil {
		return Middleware{}, fmt.Errorf("rate_limit: %w", err)
	}
	return Middleware{
		Auth:      httpMW.NewAuthMiddleware(log, services.Auth, cfg.ServerURL),
		RateLimit: httpMW.NewRateLimiter(log, rate, cfg.RateLimitBlock),
	}, nil
}
