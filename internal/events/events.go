// Package events emits domain events for consumers outside the request path
// (notifications, analytics).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Webrookie0/growex-all-projects/internal/models"
	"github.com/segmentio/kafka-go"
)

const TypeMessageSent = "message.sent"

type Publisher interface {
	MessageSent(ctx context.Context, msg *models.Message) error
	Close() error
}

type MessageSentEvent struct {
	Type       string    `json:"type"`
	MessageID  uint64    `json:"messageId"`
	ChatID     string    `json:"chatId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newMessageSent(msg *models.Message) MessageSentEvent {
	return MessageSentEvent{
		Type:       TypeMessageSent,
		MessageID:  msg.ID,
		ChatID:     msg.ChatID,
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
}

// KafkaPublisher writes events keyed by chat id so one chat's events stay
// on one partition, in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,

		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) MessageSent(ctx context.Context, msg *models.Message) error {
	b, err := json.Marshal(newMessageSent(msg))
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChatID),
		Value: b,
		Time:  msg.CreatedAt,
	}); err != nil {
		return fmt.Errorf("kafka write %s: %w", TypeMessageSent, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no event broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) MessageSent(context.Context, *models.Message) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }
