package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"tickethive/utils"
)

type HealthHandler struct {
	redis redis.Cmdable
}

func NewHealthHandler(redisClient redis.Cmdable) *HealthHandler {
	return &HealthHandler{redis: redisClient}
}

func (h *HealthHandler) Health(e *core.RequestEvent) error {
	if err := utils.RedisHealthCheck(h.redis); err != nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"redis":  err.Error(),
			"time":   time.Now().UTC(),
		})
	}
	return e.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}
