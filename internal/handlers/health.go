package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"feedhub/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager *services.ConnectionManager
	startedAt   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager) *HealthHandler {
	return &HealthHandler{
		connManager: connManager,
		startedAt:   time.Now(),
	}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

// Root responds with service identity and the route map.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":    "feedhub",
		"servertime": time.Now().UnixMilli(),
		"routes": []string{
			"GET    /health",
			"GET    /metrics",
			"GET    /api/V1/notifications",
			"GET    /api/V1/notifications/global",
			"GET    /api/V1/notification/<note_id>",
			"POST   /api/V1/notifications/see",
			"POST   /api/V1/notifications/unsee",
			"POST   /api/V1/notification",
			"POST   /api/V1/notifications/expire",
			"POST   /admin/api/V1/notification/global",
			"GET    /admin/api/V1/notifications/global",
			"POST   /admin/api/V1/notifications/expire",
			"GET    /ws/feed",
		},
	})
}
