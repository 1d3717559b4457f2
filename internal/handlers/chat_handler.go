package handlers

import (
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) List(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	chats, err := h.chatService.ListChats(c.UserContext(), user.ID, 0)
	if err != nil {
		return respondError(c, err, "list_chats")
	}
	return c.JSON(chats)
}

// Open returns the chat with the requested user, 201 when it was just created.
func (h *ChatHandler) Open(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	var req dto.OpenChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.Normalize()
	if v := req.Validate(); v != dto.ViolationNone {
		return fail(c, fiber.StatusBadRequest, v.Message())
	}

	chat, created, err := h.chatService.OpenChat(c.UserContext(), user.ID, req.UserID)
	if err != nil {
		return respondError(c, err, "open_chat")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(chat)
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	messages, err := h.chatService.History(c.UserContext(), user.ID, c.Params("chatId"))
	if err != nil {
		return respondError(c, err, "history")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return c.JSON(messages)
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(c)

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.Normalize()
	if v := req.Validate(); v != dto.ViolationNone {
		return fail(c, fiber.StatusBadRequest, v.Message())
	}

	msg, err := h.chatService.Send(c.UserContext(), services.SendInput{
		ChatID:     c.Params("chatId"),
		SenderID:   user.ID,
		ReceiverID: req.Receiver,
		Content:    req.Content,
	})
	if err != nil {
		return respondError(c, err, "send_message")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
