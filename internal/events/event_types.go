package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Event represents a lifecycle event emitted by engine services.
type Event struct {
	ID        string           `json:"id"`
	Type      domain.EventType `json:"type"`
	OwnerID   string           `json:"owner_id"`
	TicketID  string           `json:"ticket_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   any              `json:"payload"`
}

// EmailReceivedPayload payload.
type EmailReceivedPayload struct {
	TicketID    string                `json:"ticket_id"`
	Subject     string                `json:"subject"`
	Sender      string                `json:"sender"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.Category       `json:"category"`
	Sentiment   domain.Sentiment      `json:"sentiment"`
	Tags        []string              `json:"tags"`
	Confidence  int                   `json:"confidence"`
	SLADeadline time.Time             `json:"sla_deadline"`
}

// EmailAssignedPayload payload.
type EmailAssignedPayload struct {
	TicketID string `json:"ticket_id"`
	AgentID  string `json:"agent_id"`
	Strategy string `json:"strategy"`
}

// EmailRepliedPayload payload.
type EmailRepliedPayload struct {
	TicketID     string    `json:"ticket_id"`
	FirstReplyAt time.Time `json:"first_reply_at"`
	WithinSLA    bool      `json:"within_sla"`
}

// EmailResolvedPayload payload.
type EmailResolvedPayload struct {
	TicketID   string    `json:"ticket_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// AlertPayload accompanies alert.created, sla.warning and sla.breached.
type AlertPayload struct {
	AlertID          string           `json:"alert_id"`
	TicketID         string           `json:"ticket_id"`
	Type             domain.AlertType `json:"type"`
	Message          string           `json:"message"`
	Subject          string           `json:"subject"`
	SLADeadline      time.Time        `json:"sla_deadline"`
	MinutesRemaining int              `json:"minutes_remaining"`
}
