package domain

import "time"

// EventType enumerates outbound webhook event names.
type EventType string

const (
	EventEmailReceived          EventType = "email.received"
	EventEmailReplied           EventType = "email.replied"
	EventEmailAssigned          EventType = "email.assigned"
	EventEmailResolved          EventType = "email.resolved"
	EventSLAWarning             EventType = "sla.warning"
	EventSLABreached            EventType = "sla.breached"
	EventAlertCreated           EventType = "alert.created"
	EventTeamMemberAdded        EventType = "team.member.added"
	EventTeamPerformanceUpdated EventType = "team.performance.updated"
)

// EventTypes lists every valid event name in declaration order.
var EventTypes = []EventType{
	EventEmailReceived,
	EventEmailReplied,
	EventEmailAssigned,
	EventEmailResolved,
	EventSLAWarning,
	EventSLABreached,
	EventAlertCreated,
	EventTeamMemberAdded,
	EventTeamPerformanceUpdated,
}

// ValidEventType reports whether name is a known event.
func ValidEventType(name string) bool {
	for _, e := range EventTypes {
		if string(e) == name {
			return true
		}
	}
	return false
}

// WebhookSubscription is an external endpoint registered for signed event delivery.
type WebhookSubscription struct {
	ID              string
	OwnerID         string
	URL             string
	Events          []EventType
	Secret          string
	Headers         map[string]string
	Active          bool
	RetryCount      int
	LastStatus      *int
	LastError       *string
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Subscribes reports whether the subscription listens for the event.
func (w *WebhookSubscription) Subscribes(event EventType) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// DeliveryOutcome is the bookkeeping written back after a delivery.
type DeliveryOutcome struct {
	StatusCode  int
	Error       string
	TriggeredAt time.Time
}
