package handlers

import (
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/realtime"
	"github.com/Webrookie0/growex-all-projects/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const socketUserKey = "socket_user"

type WSHandler struct {
	chats  ws.Chats
	broker realtime.Broker
	hub    *ws.Hub
}

func NewWSHandler(chats ws.Chats, broker realtime.Broker, hub *ws.Hub) *WSHandler {
	return &WSHandler{chats: chats, broker: broker, hub: hub}
}

// Upgrade runs after the query-token gate and only lets websocket handshakes through.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Please authenticate.")
	}
	c.Locals(socketUserKey, user)
	return c.Next()
}

func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(socketUserKey).(*models.User)
		if !ok {
			_ = conn.Close()
			return
		}
		session := ws.NewSession(user, h.chats, h.broker)
		h.hub.Serve(ws.NewClient(conn, session))
	})
}
