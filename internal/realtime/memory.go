package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Webrookie0/growex-all-projects/internal/metrics"
)

// MemoryBroker is an in-process broker for single-instance deployments.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySub]struct{}
	closed bool
	buffer int
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		topics: make(map[string]map[*memorySub]struct{}),
		buffer: subscriberBuffer,
	}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for sub := range b.topics[topic] {
		select {
		case sub.ch <- payload:
		default:
			metrics.RealtimeDropped.WithLabelValues("memory").Inc()
			slog.Warn("realtime subscriber buffer full, dropping payload", "chat_id", topic)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := &memorySub{broker: b, topic: topic, ch: make(chan []byte, b.buffer)}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*memorySub]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub, nil
}

// Subscribers reports how many subscriptions topic currently has.
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.topics, topic)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	// closed under the write lock so no Publish can be sending on it
	sub.once.Do(func() { close(sub.ch) })
}

type memorySub struct {
	broker *MemoryBroker
	topic  string
	ch     chan []byte
	once   sync.Once
}

func (s *memorySub) C() <-chan []byte { return s.ch }

func (s *memorySub) Unsubscribe() error {
	s.broker.remove(s)
	return nil
}
