package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"feedhub/internal/apperrors"
	"feedhub/internal/config"
	"feedhub/internal/models"
	"feedhub/internal/services"
)

// FeedHandler serves the per-user notification feed endpoints.
type FeedHandler struct {
	feedService *services.FeedService
	globalFeed  models.Entity
	cfg         *config.Config
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feedService *services.FeedService, globalFeed models.Entity, cfg *config.Config) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		globalFeed:  globalFeed,
		cfg:         cfg,
	}
}

// errorResponse maps a service error onto its HTTP status and JSON body.
func errorResponse(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// feedOptions parses the shared feed query knobs: n (count), seen, rev,
// l (level filter), v (verb filter).
func (h *FeedHandler) feedOptions(c *fiber.Ctx) (services.FeedOptions, error) {
	opts := services.FeedOptions{
		Count:    h.cfg.DefaultNoteCount,
		UserView: true,
	}

	if n := c.Query("n"); n != "" {
		count, err := strconv.Atoi(n)
		if err != nil {
			return opts, apperrors.NewValidation("n must be an integer")
		}
		opts.Count = count
	}
	opts.IncludeSeen = c.Query("seen") == "1"
	opts.Reverse = c.Query("rev") == "1"

	if l := c.Query("l"); l != "" {
		level, err := models.TranslateLevel(l)
		if err != nil {
			return opts, err
		}
		opts.Level = level
	}
	if v := c.Query("v"); v != "" {
		verb, err := models.TranslateVerb(v)
		if err != nil {
			return opts, err
		}
		opts.Verb = verb
	}
	return opts, nil
}

// recipientEntity builds the feed entity for the authenticated user.
func recipientEntity(c *fiber.Ctx) (models.Entity, error) {
	userID, _ := c.Locals("user_id").(string)
	return models.NewEntity(userID, models.EntityUser)
}

// GetNotifications returns the caller's feed page plus the global feed.
// GET /api/V1/notifications
func (h *FeedHandler) GetNotifications(c *fiber.Ctx) error {
	opts, err := h.feedOptions(c)
	if err != nil {
		return errorResponse(c, err)
	}
	recipient, err := recipientEntity(c)
	if err != nil {
		return errorResponse(c, err)
	}

	userPage, err := h.feedService.ForRecipient(recipient).GetNotifications(c.Context(), opts)
	if err != nil {
		return errorResponse(c, err)
	}
	if name, ok := c.Locals("user_name").(string); ok && name != "" {
		userPage.Name = name
	}

	// The global feed rides along with every user feed so platform-wide
	// announcements reach users that never subscribe to it explicitly.
	globalOpts := opts
	globalOpts.IncludeSeen = true
	globalPage, err := h.feedService.ForRecipient(h.globalFeed).GetNotifications(c.Context(), globalOpts)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user":   userPage,
		"global": globalPage,
	})
}

// GetGlobalNotifications returns the global feed on its own. The global feed
// carries platform-wide announcements only, so no auth is required.
// GET /api/V1/notifications/global
func (h *FeedHandler) GetGlobalNotifications(c *fiber.Ctx) error {
	opts, err := h.feedOptions(c)
	if err != nil {
		return errorResponse(c, err)
	}
	opts.IncludeSeen = true

	page, err := h.feedService.ForRecipient(h.globalFeed).GetNotifications(c.Context(), opts)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"global": page})
}

// GetNotification returns one notification visible to the caller.
// GET /api/V1/notification/:id
func (h *FeedHandler) GetNotification(c *fiber.Ctx) error {
	recipient, err := recipientEntity(c)
	if err != nil {
		return errorResponse(c, err)
	}
	note, err := h.feedService.ForRecipient(recipient).GetNotification(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"notification": note.UserView()})
}

type markRequest struct {
	NoteIDs []string `json:"note_ids"`
}

// MarkSeen marks notifications seen for the caller.
// POST /api/V1/notifications/see
func (h *FeedHandler) MarkSeen(c *fiber.Ctx) error {
	var req markRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON body with note_ids"))
	}
	recipient, err := recipientEntity(c)
	if err != nil {
		return errorResponse(c, err)
	}
	seen, unauthorized, err := h.feedService.ForRecipient(recipient).MarkSeen(c.Context(), req.NoteIDs)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"seen_notes":         seen,
		"unauthorized_notes": unauthorized,
	})
}

// MarkUnseen marks notifications unseen again for the caller.
// POST /api/V1/notifications/unsee
func (h *FeedHandler) MarkUnseen(c *fiber.Ctx) error {
	var req markRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.NewValidation("expected a JSON body with note_ids"))
	}
	recipient, err := recipientEntity(c)
	if err != nil {
		return errorResponse(c, err)
	}
	unseen, unauthorized, err := h.feedService.ForRecipient(recipient).MarkUnseen(c.Context(), req.NoteIDs)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"unseen_notes":       unseen,
		"unauthorized_notes": unauthorized,
	})
}
