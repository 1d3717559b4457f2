package dto

import (
	"strings"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"min=6,max=72"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=influencer brand"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *RegisterRequest) Validate() Violation {
	if v := check(r, rules{
		"Username":  ViolationUsernameLength,
		"Email.max": ViolationFieldTooLong,
		"Email":     ViolationEmailFormat,
		"Password":  ViolationPasswordLength,
		"Role":      ViolationRoleUnknown,
	}); v != ViolationNone {
		return v
	}
	// validator counts runes, bcrypt counts bytes.
	if len(r.Password) > MaxPasswordLength {
		return ViolationPasswordLength
	}
	return ViolationNone
}

// LoginRequest identifies the account by username, or by email when no
// username is given.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"required_without=Username"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() Violation {
	return check(r, rules{
		"Username": ViolationMissingCredentials,
		"Email":    ViolationMissingCredentials,
		"Password": ViolationMissingCredentials,
	})
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Store     string `json:"store"`
	Broker    string `json:"broker"`
}
