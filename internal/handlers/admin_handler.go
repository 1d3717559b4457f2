package handlers

import (
	"strings"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	logs repository.LogRepository
}

func NewAdminHandler(logs repository.LogRepository) *AdminHandler {
	return &AdminHandler{logs: logs}
}

// Logs returns the newest persisted error logs, optionally filtered by
// ?level= and capped by ?limit=.
func (h *AdminHandler) Logs(c *fiber.Ctx) error {
	filter := repository.LogFilter{
		Level: strings.ToUpper(strings.TrimSpace(c.Query("level"))),
		Limit: c.QueryInt("limit", 0),
	}

	logs, err := h.logs.ListLogs(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err, "list_logs")
	}
	if logs == nil {
		logs = []models.SystemLog{}
	}
	return c.JSON(logs)
}
