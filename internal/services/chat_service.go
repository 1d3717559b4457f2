package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Webrookie0/growex-all-projects/internal/chatid"
	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/events"
	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/realtime"
	"github.com/Webrookie0/growex-all-projects/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrNotParticipant  = errors.New("not a participant of this chat")
	ErrSelfChat        = errors.New("cannot open a chat with yourself")
	ErrInvalidReceiver = errors.New("receiver is not the other participant")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrContentTooLong  = errors.New("message content is too long")
)

type ChatService struct {
	users     repository.UserRepository
	chats     repository.ChatRepository
	broker    realtime.Broker
	publisher events.Publisher
	now       func() time.Time
}

func NewChatService(users repository.UserRepository, chats repository.ChatRepository, broker realtime.Broker, publisher events.Publisher) *ChatService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &ChatService{
		users:     users,
		chats:     chats,
		broker:    broker,
		publisher: publisher,
		now:       time.Now,
	}
}

// OpenChat returns the chat between caller and peer, creating it on first use.
func (s *ChatService) OpenChat(ctx context.Context, caller uuid.UUID, peerID string) (*dto.ChatResponse, bool, error) {
	peer, err := uuid.Parse(strings.TrimSpace(peerID))
	if err != nil {
		return nil, false, invalid(dto.ViolationMissingPeer)
	}
	if peer == caller {
		return nil, false, ErrSelfChat
	}

	peerUser, err := s.users.FindByID(ctx, peer)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, err
	}

	chat, created, err := s.getOrCreate(ctx, caller, peer)
	if err != nil {
		return nil, false, err
	}

	resp := toChatResponse(chat)
	resp.With = &dto.UserResponse{ID: peerUser.ID, Username: peerUser.Username, Email: peerUser.Email}
	return &resp, created, nil
}

func (s *ChatService) getOrCreate(ctx context.Context, a, b uuid.UUID) (*models.Chat, bool, error) {
	id := chatid.Derive(a.String(), b.String())
	lo, hi := a, b
	if hi.String() < lo.String() {
		lo, hi = hi, lo
	}
	chat, created, err := s.chats.GetOrCreate(ctx, &models.Chat{ID: id, UserA: lo, UserB: hi})
	if err != nil {
		return nil, false, fmt.Errorf("failed to open chat: %w", err)
	}
	if created {
		slog.Info("chat created", "chat_id", id)
	}
	return chat, created, nil
}

// ListChats returns the caller's chats, most recently active first.
// limit <= 0 returns all of them.
func (s *ChatService) ListChats(ctx context.Context, caller uuid.UUID, limit int) ([]dto.ChatResponse, error) {
	chats, err := s.chats.ListForUser(ctx, caller, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ChatResponse, 0, len(chats))
	for i := range chats {
		resp := toChatResponse(&chats[i])
		peer, err := s.users.FindByID(ctx, chats[i].Peer(caller))
		switch {
		case err == nil:
			resp.With = &dto.UserResponse{ID: peer.ID, Username: peer.Username, Email: peer.Email}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Authorize reports ErrNotParticipant unless caller is one of the two users
// the chat id was derived from.
func (s *ChatService) Authorize(caller uuid.UUID, chatID string) error {
	if !chatid.Includes(chatID, caller.String()) {
		return ErrNotParticipant
	}
	return nil
}

// History returns the chat's messages oldest first. A chat that does not
// exist yet has an empty history.
func (s *ChatService) History(ctx context.Context, caller uuid.UUID, chatID string) ([]models.Message, error) {
	if err := s.Authorize(caller, chatID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, chatID)
}

type SendInput struct {
	ChatID   string
	SenderID uuid.UUID
	// ReceiverID is optional; when set it must name the other participant.
	ReceiverID string
	Content    string
}

// Send stores a message and updates the chat preview atomically, then fans
// it out to the chat's subscribers. Fan-out failures are logged only: once
// the store has committed, the send has succeeded.
func (s *ChatService) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > dto.MaxMessageLength {
		return nil, ErrContentTooLong
	}

	a, b, ok := chatid.Participants(in.ChatID)
	if !ok {
		return nil, ErrNotParticipant
	}
	sender := in.SenderID.String()
	if sender != a && sender != b {
		return nil, ErrNotParticipant
	}
	if a == b {
		return nil, ErrSelfChat
	}

	peerID := a
	if sender == a {
		peerID = b
	}
	peer, err := uuid.Parse(peerID)
	if err != nil {
		return nil, ErrNotParticipant
	}
	if r := strings.TrimSpace(in.ReceiverID); r != "" {
		receiver, perr := uuid.Parse(r)
		if perr != nil || receiver != peer {
			return nil, ErrInvalidReceiver
		}
	}

	msg := &models.Message{
		ChatID:     in.ChatID,
		SenderID:   in.SenderID,
		ReceiverID: peer,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}

	_, err = s.chats.AppendMessage(ctx, msg)
	if errors.Is(err, repository.ErrNotFound) {
		// first message before anyone opened the chat
		if _, ferr := s.users.FindByID(ctx, peer); ferr != nil {
			if errors.Is(ferr, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, ferr
		}
		if _, _, err = s.getOrCreate(ctx, in.SenderID, peer); err != nil {
			return nil, err
		}
		_, err = s.chats.AppendMessage(ctx, msg)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	metrics.MessagesSent.Inc()
	s.fanOut(ctx, msg)
	return msg, nil
}

func (s *ChatService) fanOut(ctx context.Context, msg *models.Message) {
	if s.broker != nil {
		payload, err := dto.NewEnvelope(dto.EventMessage, msg)
		if err != nil {
			slog.Error("failed to encode message event", "error", err, "chat_id", msg.ChatID)
		} else if err := s.broker.Publish(ctx, msg.ChatID, payload); err != nil {
			slog.Error("failed to fan out message", "error", err, "chat_id", msg.ChatID, "action", "realtime_publish")
		}
	}

	if err := s.publisher.MessageSent(ctx, msg); err != nil {
		slog.Warn("failed to publish message event", "error", err, "chat_id", msg.ChatID)
	}
}

func toChatResponse(c *models.Chat) dto.ChatResponse {
	return dto.ChatResponse{
		ID:              c.ID,
		Participants:    c.Participants(),
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageAt,
		LastSenderID:    c.LastSenderID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
