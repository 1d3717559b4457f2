package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewGormStore wraps db, which must have been opened with TranslateError
// so unique violations surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB, driver string) *Store {
	return &Store{
		Driver: driver,
		Users:  &gormUsers{db: db},
		Chats:  &gormChats{db: db},
		Logs:   &gormLogs{db: db},
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *gormUsers) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *gormUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *gormUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Limit(1).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return count > 0, nil
}

func (r *gormUsers) ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	users := make([]models.User, 0)
	err := r.db.WithContext(ctx).
		Where("id <> ?", id).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *gormUsers) CountExcept(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *gormUsers) UpdateProfile(ctx context.Context, id uuid.UUID, p models.Profile) (*models.User, error) {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"bio":              p.Bio,
		"avatar":           p.Avatar,
		"role":             p.Role,
		"location":         p.Location,
		"interests":        datatypes.JSONSlice[string](interests),
		"social_instagram": p.SocialLinks.Instagram,
		"social_twitter":   p.SocialLinks.Twitter,
		"social_youtube":   p.SocialLinks.YouTube,
		"social_tiktok":    p.SocialLinks.TikTok,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

type gormChats struct {
	db *gorm.DB
}

func (r *gormChats) GetOrCreate(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(chat)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create chat: %w", res.Error)
	}

	stored, err := r.FindByID(ctx, chat.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1, nil
}

func (r *gormChats) FindByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &chat, nil
}

func (r *gormChats) forUser(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Chat{}).Where("user_a = ? OR user_b = ?", userID, userID)
}

func (r *gormChats) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Chat, error) {
	chats := make([]models.Chat, 0)
	q := r.forUser(ctx, userID).Order("updated_at DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

func (r *gormChats) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.forUser(ctx, userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return count, nil
}

func (r *gormChats) AppendMessage(ctx context.Context, msg *models.Message) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&chat, "id = ?", msg.ChatID).Error; err != nil {
			return translate(err)
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		content := msg.Content
		sender := msg.SenderID
		at := msg.CreatedAt
		res := tx.Model(&chat).Updates(map[string]any{
			"last_message":    content,
			"last_message_at": at,
			"last_sender_id":  sender,
			"updated_at":      at,
		})
		if res.Error != nil {
			return fmt.Errorf("update chat preview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		chat.LastMessage = &content
		chat.LastMessageAt = &at
		chat.LastSenderID = &sender
		chat.UpdatedAt = at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *gormChats) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

type gormLogs struct {
	db *gorm.DB
}

func (r *gormLogs) InsertLogs(ctx context.Context, logs []models.SystemLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 50).Error
}

func (r *gormLogs) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return res.RowsAffected, res.Error
}

func (r *gormLogs) ListLogs(ctx context.Context, f LogFilter) ([]models.SystemLog, error) {
	logs := make([]models.SystemLog, 0)
	q := r.db.WithContext(ctx).Order("timestamp DESC").Limit(f.limit())
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}
