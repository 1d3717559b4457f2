package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/Webrookie0/growex-all-projects/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "ic:chat:"

// RedisBroker fans out through Redis PUBLISH/SUBSCRIBE so sockets on any
// instance see messages committed on another.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, redisChannelPrefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, redisChannelPrefix+topic)
	// wait for the subscription confirmation so nothing published afterwards is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &redisSub{ps: ps, ch: make(chan []byte, subscriberBuffer)}
	go sub.forward(ps.Channel())
	return sub, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	ch   chan []byte
	once sync.Once
	err  error
}

func (s *redisSub) forward(in <-chan *redis.Message) {
	defer close(s.ch)
	for msg := range in {
		select {
		case s.ch <- []byte(msg.Payload):
		default:
			metrics.RealtimeDropped.WithLabelValues("redis").Inc()
		}
	}
}

func (s *redisSub) C() <-chan []byte { return s.ch }

func (s *redisSub) Unsubscribe() error {
	s.once.Do(func() { s.err = s.ps.Close() })
	return s.err
}
