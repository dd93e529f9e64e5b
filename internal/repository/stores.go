package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores groups the repositories the engine runs on.
type Stores struct {
	Tickets  TicketRepository
	Agents   AgentRepository
	Alerts   AlertRepository
	Webhooks WebhookRepository
}

// NewPostgresStores builds pgx-backed repositories sharing one pool.
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Tickets:  NewTicketRepository(pool),
		Agents:   NewAgentRepository(pool),
		Alerts:   NewAlertRepository(pool),
		Webhooks: NewWebhookRepository(pool),
	}
}
