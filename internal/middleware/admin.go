package middleware

import (
	"strings"

	"github.com/Webrookie0/growex-all-projects/internal/config"
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired must run after Authenticated. It admits users whose role is
// admin or whose email is listed in ADMIN_EMAILS.
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}

		if user.Role == models.RoleAdmin || contains(adminEmails, user.Email) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
