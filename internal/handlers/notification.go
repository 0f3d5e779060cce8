package handlers

import (
	"github.com/gofiber/fiber/v2"

	"feedhub/internal/apperrors"
	"feedhub/internal/models"
	"feedhub/internal/services"
)

// NotificationHandler serves the service-facing ingest endpoints. Callers
// are trusted platform services authenticated by service token; the
// service identity doubles as the notification source when none is given.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// createRequest is the wire form of a notification create call. Entities
// arrive in their compact "type::id" form.
type createRequest struct {
	Actor       string                 `json:"actor"`
	Verb        interface{}            `json:"verb"`
	Object      string                 `json:"object"`
	Source      string                 `json:"source"`
	Level       interface{}            `json:"level"`
	Target      []string               `json:"target"`
	Users       []string               `json:"users"`
	Context     map[string]interface{} `json:"context"`
	Expires     int64                  `json:"expires"`
	ExternalKey string                 `json:"external_key"`
}

// toInput parses the wire form into a NotificationInput.
func (r *createRequest) toInput(defaultSource string) (models.NotificationInput, error) {
	var in models.NotificationInput

	actor, err := models.ParseEntity(r.Actor)
	if err != nil {
		return in, apperrors.NewValidation("invalid actor: %v", err)
	}
	object, err := models.ParseEntity(r.Object)
	if err != nil {
		return in, apperrors.NewValidation("invalid object: %v", err)
	}
	target, err := models.ParseEntities(r.Target)
	if err != nil {
		return in, apperrors.NewValidation("invalid target: %v", err)
	}
	users, err := models.ParseEntities(r.Users)
	if err != nil {
		return in, apperrors.NewValidation("invalid users: %v", err)
	}

	source := r.Source
	if source == "" {
		source = defaultSource
	}

	in = models.NotificationInput{
		Actor:       actor,
		Verb:        r.Verb,
		Object:      object,
		Source:      source,
		Level:       r.Level,
		Target:      target,
		Users:       users,
		Context:     r.Context,
		Expires:     r.Expires,
		ExternalKey: r.ExternalKey,
	}
	return in, nil
}

// Create ingests one notification and fans it out.
// POST /api/V1/notification
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON notification body"))
	}
	serviceName, _ := c.Locals("service_name").(string)

	in, err := req.toInput(serviceName)
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

// Expire force-expires notifications the calling service created.
// POST /api/V1/notifications/expire
func (h *NotificationHandler) Expire(c *fiber.Ctx) error {
	var req services.ExpireTargets
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON body with note_ids or external_keys"))
	}
	if len(req.IDs) == 0 && len(req.ExternalKeys) == 0 {
		return errorResponse(c, apperrors.NewValidation("either note_ids or external_keys is required"))
	}
	serviceName, _ := c.Locals("service_name").(string)

	result, err := h.notificationService.ExpireByIdsOrKeys(c.Context(), req.IDs, req.ExternalKeys, serviceName, false)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}
