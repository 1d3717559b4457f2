package middleware

import (
	"errors"
	"log/slog"

	"github.com/Webrookie0/growex-all-projects/internal/config"
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenKey       = "user"
	currentUserKey = "current_user"
)

// Authenticated verifies the bearer token in the Authorization header and
// attaches the account it names to the request.
func Authenticated(cfg *config.Config, users repository.UserRepository) fiber.Handler {
	return authenticate(cfg, users, "header:Authorization", "Bearer")
}

// AuthenticatedQuery is Authenticated for WebSocket handshakes, which carry
// the token as ?token= because browsers cannot set headers on them.
func AuthenticatedQuery(cfg *config.Config, users repository.UserRepository) fiber.Handler {
	return authenticate(cfg, users, "query:token", "")
}

func authenticate(cfg *config.Config, users repository.UserRepository, lookup, scheme string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		TokenLookup: lookup,
		AuthScheme:  scheme,
		ContextKey:  tokenKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			return loadUser(c, users)
		},
	})
}

func loadUser(c *fiber.Ctx, users repository.UserRepository) error {
	token, ok := c.Locals(tokenKey).(*jwt.Token)
	if !ok || token == nil {
		return unauthorized(c)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthorized(c)
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return unauthorized(c)
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return unauthorized(c)
	}

	user, err := users.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		slog.Error("failed to load authenticated user", "error", err, "user_id", sub)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Please authenticate.",
	})
}

// CurrentUser returns the account attached by Authenticated.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(currentUserKey).(*models.User)
	return user, ok && user != nil
}
