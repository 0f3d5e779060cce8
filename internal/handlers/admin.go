package handlers

import (
	"github.com/gofiber/fiber/v2"

	"feedhub/internal/apperrors"
	"feedhub/internal/config"
	"feedhub/internal/models"
	"feedhub/internal/services"
)

// AdminHandler serves the administrator endpoints: posting to the global
// feed and expiring any notification regardless of source.
type AdminHandler struct {
	feedService         *services.FeedService
	notificationService *services.NotificationService
	globalFeed          models.Entity
	cfg                 *config.Config
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(feedService *services.FeedService, notificationService *services.NotificationService, globalFeed models.Entity, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		feedService:         feedService,
		notificationService: notificationService,
		globalFeed:          globalFeed,
		cfg:                 cfg,
	}
}

// CreateGlobal posts a platform-wide announcement to the global feed.
// POST /admin/api/V1/notification/global
func (h *AdminHandler) CreateGlobal(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON notification body"))
	}
	req.Source = services.SourceAdmin

	in, err := req.toInput(services.SourceAdmin)
	if err != nil {
		return errorResponse(c, err)
	}
	note, err := h.notificationService.CreateNotification(in)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.notificationService.RouteAndStore(c.Context(), note); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": note.ID})
}

// GetGlobal returns the global feed on its own, without a user feed.
// GET /admin/api/V1/notifications/global
func (h *AdminHandler) GetGlobal(c *fiber.Ctx) error {
	page, err := h.feedService.ForRecipient(h.globalFeed).GetNotifications(c.Context(), services.FeedOptions{
		Count:       h.cfg.DefaultNoteCount,
		IncludeSeen: true,
		UserView:    true,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(page)
}

// Expire force-expires notifications by id with no source restriction.
// POST /admin/api/V1/notifications/expire
func (h *AdminHandler) Expire(c *fiber.Ctx) error {
	var req services.ExpireTargets
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON body with note_ids or external_keys"))
	}
	if len(req.IDs) == 0 && len(req.ExternalKeys) == 0 {
		return errorResponse(c, apperrors.NewValidation("either note_ids or external_keys is required"))
	}

	// Admins expire by id across sources. Key-based expiration still needs
	// a source; admins pass it explicitly.
	source := c.Query("source")
	result, err := h.notificationService.ExpireByIdsOrKeys(c.Context(), req.IDs, req.ExternalKeys, source, true)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}
