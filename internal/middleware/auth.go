package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"

	"feedhub/internal/config"
	"feedhub/internal/external"
	"feedhub/pkg/auth"
)

// Validated tokens are cached briefly so a busy client does not hit the
// auth service on every request.
const tokenCacheTTL = 5 * time.Minute

// UserAuthMiddleware validates the caller's login token against the auth
// service and stores the resolved identity in request locals.
// Supports both Authorization header and query parameter (for WebSocket
// connections).
func UserAuthMiddleware(authClient *external.AuthClient, cfg *config.Config) fiber.Handler {
	tokenCache := cache.New(tokenCacheTTL, 10*time.Minute)

	return func(c *fiber.Ctx) error {
		var token string

		if authHeader := c.Get("Authorization"); authHeader != "" {
			if extracted, err := auth.ExtractToken(authHeader); err == nil {
				token = extracted
			}
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		var user *external.UserInfo
		if cached, found := tokenCache.Get(token); found {
			user = cached.(*external.UserInfo)
		} else {
			validated, err := authClient.ValidateToken(c.Context(), token)
			if err != nil {
				log.Printf("Auth failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}
			user = validated
			tokenCache.Set(token, user, cache.DefaultExpiration)
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_name", user.DisplayName)
		c.Locals("is_admin", user.HasRole("FEEDS_ADMIN") || cfg.IsAdmin(user.ID))
		return c.Next()
	}
}

// ServiceAuthMiddleware validates a service token on endpoints only trusted
// platform services may call, such as notification creation.
func ServiceAuthMiddleware(serviceJWT *auth.ServiceJWT) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		identity, err := serviceJWT.Validate(token)
		if err != nil {
			log.Printf("Service auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid service token",
			})
		}

		c.Locals("service_name", identity.Service)
		return c.Next()
	}
}

// AdminMiddleware gates endpoints reserved for notification administrators.
// Runs after UserAuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		if isAdmin, ok := c.Locals("is_admin").(bool); !ok || !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
