package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "ic.chat."

type NATSBroker struct {
	nc *nats.Conn
}

func NewNATSBroker(nc *nats.Conn) *NATSBroker {
	return &NATSBroker{nc: nc}
}

func (b *NATSBroker) Publish(_ context.Context, topic string, payload []byte) error {
	if err := b.nc.Publish(natsSubjectPrefix+topic, payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	sub := &natsSub{ch: make(chan []byte, subscriberBuffer)}
	s, err := b.nc.Subscribe(natsSubjectPrefix+topic, sub.deliver)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}
	// round-trip so the server has registered interest before we return
	if err := b.nc.FlushWithContext(ctx); err != nil {
		_ = s.Unsubscribe()
		return nil, fmt.Errorf("nats flush: %w", err)
	}
	sub.s = s
	return sub, nil
}

func (b *NATSBroker) Close() error {
	b.nc.Close()
	return nil
}

type natsSub struct {
	s      *nats.Subscription
	mu     sync.Mutex
	ch     chan []byte
	closed bool
	once   sync.Once
	err    error
}

func (s *natsSub) deliver(m *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- m.Data:
	default:
		metrics.RealtimeDropped.WithLabelValues("nats").Inc()
	}
}

func (s *natsSub) C() <-chan []byte { return s.ch }

func (s *natsSub) Unsubscribe() error {
	s.once.Do(func() {
		if s.s != nil {
			s.err = s.s.Unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return s.err
}
