// Package repository holds the persistence contracts and their GORM and
// MongoDB implementations. Exactly one store backs a running server.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	// Create assigns defaults and inserts u. A username or email clash yields ErrDuplicate.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// ListExcept returns every user other than id, ordered by username.
	ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error)
	CountExcept(ctx context.Context, id uuid.UUID) (int64, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p models.Profile) (*models.User, error)
}

type ChatRepository interface {
	// GetOrCreate inserts chat unless a chat with the same ID exists. The
	// stored chat is returned either way and an existing one is never modified.
	GetOrCreate(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error)
	FindByID(ctx context.Context, id string) (*models.Chat, error)
	// ListForUser returns the user's chats, most recently active first.
	// limit <= 0 means no limit.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Chat, error)
	CountForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// AppendMessage stores msg and updates the chat preview as one unit: either
	// both are visible afterwards or neither is. msg.ID is assigned on success.
	AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error)
	// ListMessages returns the chat's messages oldest first, ties broken by ID.
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

type LogFilter struct {
	Level string
	Limit int
}

type LogRepository interface {
	InsertLogs(ctx context.Context, logs []models.SystemLog) error
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// ListLogs returns the newest logs first.
	ListLogs(ctx context.Context, f LogFilter) ([]models.SystemLog, error)
}

// Store bundles the repositories of one backing database.
type Store struct {
	Driver string
	Users  UserRepository
	Chats  ChatRepository
	Logs   LogRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

const defaultLogLimit = 100

func (f LogFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return defaultLogLimit
	}
	return f.Limit
}
