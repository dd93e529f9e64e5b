// Package livefeed fans engine events out to connected dashboard clients,
// keyed by owner id. Backends are swappable so several instances can share
// one pub/sub channel.
package livefeed

import (
	"context"
	"encoding/json"
	"time"
)

const subscriberBuffer = 32

// Message is one live-feed item.
type Message struct {
	Event     string          `json:"event"`
	OwnerID   string          `json:"owner_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Subscription delivers messages for one owner until closed.
type Subscription struct {
	C     <-chan Message
	close func()
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Registry publishes and subscribes owner-scoped messages.
type Registry interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
}
