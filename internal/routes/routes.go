package routes

import (
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/config"
	"github.com/Webrookie0/growex-all-projects/internal/handlers"
	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/Webrookie0/growex-all-projects/internal/middleware"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Health    *handlers.HealthHandler
	User      *handlers.UserHandler
	Chat      *handlers.ChatHandler
	Dashboard *handlers.DashboardHandler
	Admin     *handlers.AdminHandler
	WS        *handlers.WSHandler
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		},
	})
}

func Setup(app *fiber.App, cfg *config.Config, users repository.UserRepository, h Handlers) {
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// 60 req/min per IP
	api.Use(rateLimit(60))

	api.Get("/health", h.Health.Check)

	// Stricter limit on credential endpoints: 10 req/min per IP
	authLimit := rateLimit(10)
	api.Post("/users/register", authLimit, h.Auth.Register)
	api.Post("/users/login", authLimit, h.Auth.Login)

	protected := middleware.Authenticated(cfg, users)

	api.Get("/users/me", protected, h.User.Me)
	api.Put("/users/me", protected, h.User.UpdateMe)
	api.Get("/contacts", protected, h.User.Contacts)

	api.Get("/chats", protected, h.Chat.List)
	api.Post("/chats", protected, h.Chat.Open)
	api.Get("/messages/:chatId", protected, h.Chat.History)
	api.Post("/messages/:chatId", protected, h.Chat.Send)

	api.Get("/dashboard", protected, h.Dashboard.Summary)

	admin := api.Group("/admin", protected, middleware.AdminRequired(cfg))
	admin.Get("/logs", h.Admin.Logs)

	// Browsers cannot set headers on the handshake, so the token rides in ?token=
	app.Get("/ws", middleware.AuthenticatedQuery(cfg, users), h.WS.Upgrade, h.WS.Serve())
}
