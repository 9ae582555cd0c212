package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness of the process and its backing stores.
// It is used by load balancers and monitoring systems.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client // optional
}

// Health answers 200 when MySQL responds to a ping and 503 otherwise.
// Redis is reported but never fails the check since every Redis-backed
// feature degrades without it.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := echo.Map{"database": "disabled", "redis": "disabled"}
	if h.DB != nil {
		checks["database"] = "up"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Redis != nil {
		checks["redis"] = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
		}
	}
	return c.JSON(status, Envelope{
		Success: status == http.StatusOK,
		Message: http.StatusText(status),
		Data:    echo.Map{"checks": checks, "time": time.Now().UTC()},
	})
}
