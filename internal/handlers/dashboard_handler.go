package handlers

import (
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	summary, err := h.dashboardService.Summary(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err, "dashboard")
	}
	return c.JSON(summary)
}
