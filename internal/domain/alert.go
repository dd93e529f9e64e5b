package domain

import "time"

// AlertType enumerates SLA notice kinds.
type AlertType string

const (
	AlertTypeDeadlineApproaching AlertType = "deadline_approaching"
	AlertTypeOverdue             AlertType = "overdue"
	AlertTypeHighPriority        AlertType = "high_priority"
)

// Alert is a notice that a ticket is at risk of, or has, breached its SLA.
// At most one alert exists per ticket.
type Alert struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	OwnerID   string    `json:"owner_id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
