package handlers

import (
	"context"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store        Pinger
	storeDriver  string
	brokerDriver string
}

func NewHealthHandler(store Pinger, storeDriver, brokerDriver string) *HealthHandler {
	return &HealthHandler{store: store, storeDriver: storeDriver, brokerDriver: brokerDriver}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Store:     h.storeDriver,
		Broker:    h.brokerDriver,
	})
}
