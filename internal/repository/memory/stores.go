package memory

import "github.com/spec-kit/sla-engine/internal/repository"

// NewStores builds an empty in-memory store set.
func NewStores() repository.Stores {
	return repository.Stores{
		Tickets:  NewTicketRepository(),
		Agents:   NewAgentRepository(),
		Alerts:   NewAlertRepository(),
		Webhooks: NewWebhookRepository(),
	}
}
