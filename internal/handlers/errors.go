package handlers

import (
	"errors"
	"log/slog"

	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/gofiber/fiber/v2"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badBody(c *fiber.Ctx) error {
	return fail(c, fiber.StatusBadRequest, "Invalid request body")
}

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error, action string) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, fiber.StatusBadRequest, verr.Violation.Message())
	case errors.Is(err, services.ErrUserExists):
		return fail(c, fiber.StatusBadRequest, "User already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		return fail(c, fiber.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, services.ErrNotParticipant):
		return fail(c, fiber.StatusForbidden, "Not a participant of this chat")
	case errors.Is(err, services.ErrSelfChat):
		return fail(c, fiber.StatusBadRequest, "Cannot chat with yourself")
	case errors.Is(err, services.ErrInvalidReceiver):
		return fail(c, fiber.StatusBadRequest, "Receiver is not a participant of this chat")
	case errors.Is(err, services.ErrEmptyContent):
		return fail(c, fiber.StatusBadRequest, dto.ViolationContentEmpty.Message())
	case errors.Is(err, services.ErrContentTooLong):
		return fail(c, fiber.StatusBadRequest, dto.ViolationContentTooLong.Message())
	case errors.Is(err, services.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrChatNotFound):
		return fail(c, fiber.StatusNotFound, "Chat not found")
	}

	slog.Error("request failed",
		"error", err,
		"action", action,
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// ErrorHandler is the app-wide fallback for errors no handler turned into a response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return fail(c, code, message)
}
