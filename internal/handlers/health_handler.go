package handlers

import (
	"net/http"
	"time"

	"eventpass/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis redis.Cmdable
}

func NewHealthHandler(redisClient redis.Cmdable) *HealthHandler {
	return &HealthHandler{redis: redisClient}
}

func (h *HealthHandler) Health(e *core.RequestEvent) error {
	checks := map[string]string{"redis": "ok"}
	code := http.StatusOK

	if err := utils.RedisHealthCheck(e.Request.Context(), h.redis); err != nil {
		checks["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	return e.JSON(code, map[string]any{
		"status":    http.StatusText(code),
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
