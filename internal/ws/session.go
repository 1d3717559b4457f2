// Package ws serves the chat socket protocol over gofiber/websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/Webrookie0/growex-all-projects/internal/dto"
	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/Webrookie0/growex-all-projects/internal/realtime"
	"github.com/Webrookie0/growex-all-projects/internal/services"
	"github.com/google/uuid"
)

const sendBuffer = 256

var errSenderMismatch = errors.New("sender does not match the authenticated user")

// Chats is the part of the chat service a socket needs.
type Chats interface {
	Authorize(caller uuid.UUID, chatID string) error
	Send(ctx context.Context, in services.SendInput) (*models.Message, error)
}

// Session holds one socket's room subscriptions and outbound queue. It knows
// nothing about the underlying connection, the Client pumps frames in and out.
type Session struct {
	user   *models.User
	chats  Chats
	broker realtime.Broker

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte

	mu   sync.Mutex
	subs map[string]realtime.Subscription
	wg   sync.WaitGroup
	once sync.Once
}

func NewSession(user *models.User, chats Chats, broker realtime.Broker) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		user:   user,
		chats:  chats,
		broker: broker,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendBuffer),
		subs:   make(map[string]realtime.Subscription),
	}
}

// Outbound yields frames to write to the socket.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Handle processes one inbound frame.
func (s *Session) Handle(frame []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		s.fail("", "Malformed event")
		return
	}

	switch env.Event {
	case dto.EventJoin:
		var p dto.JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ChatID == "" {
			s.fail(env.Event, "chatId is required")
			return
		}
		if err := s.join(p.ChatID); err != nil {
			s.fail(env.Event, socketMessage(err))
			return
		}
		s.emit(dto.EventJoined, dto.RoomAck{ChatID: p.ChatID})

	case dto.EventLeave:
		var p dto.LeavePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ChatID == "" {
			s.fail(env.Event, "chatId is required")
			return
		}
		s.leave(p.ChatID)
		s.emit(dto.EventLeft, dto.RoomAck{ChatID: p.ChatID})

	case dto.EventSendMessage:
		var p dto.SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ChatID == "" {
			s.fail(env.Event, "chatId is required")
			return
		}
		if p.Sender != "" && p.Sender != s.user.ID.String() {
			s.fail(env.Event, socketMessage(errSenderMismatch))
			return
		}
		_, err := s.chats.Send(s.ctx, services.SendInput{
			ChatID:     p.ChatID,
			SenderID:   s.user.ID,
			ReceiverID: p.Receiver,
			Content:    p.Content,
		})
		if err != nil {
			s.fail(env.Event, socketMessage(err))
		}

	default:
		s.fail(env.Event, "Unknown event")
	}
}

// join subscribes the session to chatID. Joining twice is a no-op.
func (s *Session) join(chatID string) error {
	if err := s.chats.Authorize(s.user.ID, chatID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return realtime.ErrClosed
	}
	if _, ok := s.subs[chatID]; ok {
		return nil
	}

	sub, err := s.broker.Subscribe(s.ctx, chatID)
	if err != nil {
		return err
	}
	s.subs[chatID] = sub

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for payload := range sub.C() {
			s.enqueue(payload)
		}
	}()
	return nil
}

func (s *Session) leave(chatID string) {
	s.mu.Lock()
	sub, ok := s.subs[chatID]
	delete(s.subs, chatID)
	s.mu.Unlock()

	if ok {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe socket", "error", err, "chat_id", chatID, "user_id", s.user.ID.String())
		}
	}
}

// Joined reports whether the session is subscribed to chatID.
func (s *Session) Joined(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[chatID]
	return ok
}

// Close unsubscribes every remaining room. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		subs := s.subs
		s.subs = make(map[string]realtime.Subscription)
		s.cancel()
		s.mu.Unlock()

		for chatID, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				slog.Warn("failed to unsubscribe socket", "error", err, "chat_id", chatID, "user_id", s.user.ID.String())
			}
		}
		s.wg.Wait()
	})
}

func (s *Session) emit(event string, data any) {
	frame, err := dto.NewEnvelope(event, data)
	if err != nil {
		slog.Error("failed to encode socket event", "error", err, "action", event)
		return
	}
	s.enqueue(frame)
}

func (s *Session) fail(event, message string) {
	s.emit(dto.EventError, dto.SocketError{Event: event, Message: message})
}

// enqueue never blocks: a socket that stops reading loses frames.
func (s *Session) enqueue(frame []byte) {
	select {
	case <-s.ctx.Done():
	case s.send <- frame:
	default:
		metrics.RealtimeDropped.WithLabelValues("socket").Inc()
		slog.Warn("socket send buffer full, dropping frame", "user_id", s.user.ID.String())
	}
}

func socketMessage(err error) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Violation.Message()
	case errors.Is(err, errSenderMismatch):
		return "Sender does not match the authenticated user"
	case errors.Is(err, services.ErrNotParticipant):
		return "Not a participant of this chat"
	case errors.Is(err, services.ErrEmptyContent):
		return dto.ViolationContentEmpty.Message()
	case errors.Is(err, services.ErrContentTooLong):
		return dto.ViolationContentTooLong.Message()
	case errors.Is(err, services.ErrInvalidReceiver):
		return "Receiver is not a participant of this chat"
	case errors.Is(err, services.ErrSelfChat):
		return "Cannot chat with yourself"
	case errors.Is(err, realtime.ErrClosed):
		return "Connection closed"
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrChatNotFound):
		return "Chat not found"
	default:
		slog.Error("socket event failed", "error", err)
		return "Internal server error"
	}
}
