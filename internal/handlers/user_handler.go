package handlers

import (
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	profile, err := h.userService.Profile(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err, "profile")
	}
	return c.JSON(dto.ProfileEnvelope{User: *profile})
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	profile, err := h.userService.UpdateProfile(c.UserContext(), user.ID, &req)
	if err != nil {
		return respondError(c, err, "update_profile")
	}
	return c.JSON(dto.ProfileEnvelope{User: *profile})
}

// Contacts lists every other user, ordered by username.
func (h *UserHandler) Contacts(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	contacts, err := h.userService.Contacts(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err, "contacts")
	}
	return c.JSON(contacts)
}
