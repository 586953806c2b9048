package bootstrap

import (
	"context"

	"github.com/smashburgertza/astralinelogistics-sub006/internal/interfaces/http/handler"
)

// HealthChecks probes the database and, when connected, Redis
func (c *Container) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": c.Database.Ping,
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
