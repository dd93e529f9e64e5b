package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// IngestEmailRequest payload.
type IngestEmailRequest struct {
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	From       string     `json:"from"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

// ClassifyRequest payload.
type ClassifyRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ReplyRequest payload. RepliedAt defaults to now.
type ReplyRequest struct {
	RepliedAt *time.Time `json:"repliedAt"`
}

// TicketResponse describes a tracked email.
type TicketResponse struct {
	ID              string                `json:"id"`
	Subject         string                `json:"subject"`
	From            string                `json:"from"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        domain.Category       `json:"category"`
	Sentiment       domain.Sentiment      `json:"sentiment"`
	Tags            []string              `json:"tags"`
	Status          domain.TicketStatus   `json:"status"`
	ReceivedAt      time.Time             `json:"receivedAt"`
	SLADeadline     time.Time             `json:"slaDeadline"`
	FirstReplyAt    *time.Time            `json:"firstReplyAt,omitempty"`
	AssignedAgentID *string               `json:"assignedAgentId,omitempty"`
	IsResolved      bool                  `json:"isResolved"`
}

// IngestEmailResponse pairs the stored ticket with its classification.
type IngestEmailResponse struct {
	Ticket         TicketResponse        `json:"email"`
	Classification domain.Classification `json:"classification"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TicketResponse{
		ID:              t.ID,
		Subject:         t.Subject,
		From:            t.SenderAddress,
		Priority:        t.Priority,
		Category:        t.Category,
		Sentiment:       t.Sentiment,
		Tags:            tags,
		Status:          t.Status,
		ReceivedAt:      t.ReceivedAt,
		SLADeadline:     t.SLADeadline,
		FirstReplyAt:    t.FirstReplyAt,
		AssignedAgentID: t.AssignedAgentID,
		IsResolved:      t.IsResolved,
	}
}
