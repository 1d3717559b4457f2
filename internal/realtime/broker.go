// Package realtime fans chat events out to every socket subscribed to a chat.
package realtime

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("broker closed")

// Broker delivers payloads published on a topic to its current subscribers.
// Delivery is at-most-once; a subscriber only sees payloads published after
// Subscribe returned.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Close() error
}

type Subscription interface {
	// C is closed once the subscription ends.
	C() <-chan []byte
	// Unsubscribe is safe to call more than once.
	Unsubscribe() error
}

const subscriberBuffer = 64
