package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tracked emails.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusReplied  TicketStatus = "replied"
	TicketStatusOverdue  TicketStatus = "overdue"
	TicketStatusResolved TicketStatus = "resolved"
)

// TicketPriority enumerates SLA urgency. Inbound "urgent" and "critical"
// labels collapse into high.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// ParsePriority normalizes a priority label. Unknown values return false.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return TicketPriorityLow, true
	case "medium", "normal":
		return TicketPriorityMedium, true
	case "high", "urgent", "critical":
		return TicketPriorityHigh, true
	}
	return "", false
}

// Ticket is an inbound customer email tracked for response-time compliance.
type Ticket struct {
	ID              string
	OwnerID         string
	Subject         string
	Body            string
	SenderAddress   string
	Priority        TicketPriority
	Category        Category
	Sentiment       Sentiment
	Tags            []string
	Status          TicketStatus
	ReceivedAt      time.Time
	SLADeadline     time.Time
	FirstReplyAt    *time.Time
	AssignedAgentID *string
	AssignedAt      *time.Time
	IsResolved      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAssigned reports whether an owner has been set.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedAgentID != nil && *t.AssignedAgentID != ""
}
