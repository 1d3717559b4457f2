package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a direct conversation between exactly two users. Its ID is derived
// from the participant pair, see package chatid.
type Chat struct {
	ID            string     `gorm:"size:100;primaryKey" json:"id"`
	UserA         uuid.UUID  `gorm:"type:uuid;not null;index" json:"-"`
	UserB         uuid.UUID  `gorm:"type:uuid;not null;index" json:"-"`
	LastMessage   *string    `gorm:"type:text" json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageTime"`
	LastSenderID  *uuid.UUID `gorm:"type:uuid" json:"lastSenderId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"index" json:"updatedAt"`
}

func (c *Chat) Participants() [2]uuid.UUID {
	return [2]uuid.UUID{c.UserA, c.UserB}
}

func (c *Chat) Has(userID uuid.UUID) bool {
	return c.UserA == userID || c.UserB == userID
}

// Peer returns the participant that is not userID.
func (c *Chat) Peer(userID uuid.UUID) uuid.UUID {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// Message is immutable once stored.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID     string    `gorm:"size:100;not null;index:idx_messages_chat_created,priority:1" json:"chatId"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"sender"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null" json:"receiver"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Read       bool      `gorm:"default:false" json:"read"`
	CreatedAt  time.Time `gorm:"not null;index:idx_messages_chat_created,priority:2" json:"createdAt"`
}
