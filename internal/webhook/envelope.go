package webhook

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TimestampFormat is ISO-8601 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the JSON body POSTed to subscribers.
type Envelope struct {
	Event     domain.EventType `json:"event"`
	Timestamp string           `json:"timestamp"`
	Data      any              `json:"data"`
	OwnerID   string           `json:"owner_id"`
}

// NewEnvelope stamps an event for delivery.
func NewEnvelope(event domain.EventType, data any, ownerID string, at time.Time) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{
		Event:     event,
		Timestamp: at.UTC().Format(TimestampFormat),
		Data:      data,
		OwnerID:   ownerID,
	}
}

// Marshal encodes the envelope. The returned bytes are what gets signed and sent.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
