package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type OpenChatRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

func (r *OpenChatRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
}

func (r *OpenChatRequest) Validate() Violation {
	return check(r, rules{"UserID": ViolationMissingPeer})
}

// SendMessageRequest is the REST body for posting into a chat. Receiver is
// optional; when present it must be the other participant.
type SendMessageRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	Receiver string `json:"receiver" validate:"omitempty,uuid"`
}

func (r *SendMessageRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
	r.Receiver = strings.TrimSpace(r.Receiver)
}

func (r *SendMessageRequest) Validate() Violation {
	return check(r, rules{
		"Content.required": ViolationContentEmpty,
		"Content.max":      ViolationContentTooLong,
	})
}

type ChatResponse struct {
	ID              string        `json:"id"`
	Participants    [2]uuid.UUID  `json:"participants"`
	With            *UserResponse `json:"with,omitempty"`
	LastMessage     *string       `json:"lastMessage"`
	LastMessageTime *time.Time    `json:"lastMessageTime"`
	LastSenderID    *uuid.UUID    `json:"lastSenderId"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type DashboardResponse struct {
	TotalConnections int64          `json:"totalConnections"`
	PendingRequests  int64          `json:"pendingRequests"`
	ActiveChats      int64          `json:"activeChats"`
	RecentActivity   []ChatResponse `json:"recentActivity"`
}
