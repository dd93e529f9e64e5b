package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// eventRecorder captures every event published on a dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecordingDispatcher() (events.Dispatcher, *eventRecorder) {
	d := events.NewInMemoryDispatcher()
	rec := &eventRecorder{}
	d.Subscribe(func(_ context.Context, e events.Event) error {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, e)
		return nil
	})
	return d, rec
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func seedTicket(t *testing.T, repo *memory.TicketRepository, ticket domain.Ticket) *domain.Ticket {
	t.Helper()
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusPending
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if err := repo.Create(context.Background(), &ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return &ticket
}

func seedAgent(t *testing.T, repo *memory.AgentRepository, agent domain.Agent) {
	t.Helper()
	if agent.Role == "" {
		agent.Role = domain.AgentRoleAgent
	}
	if err := repo.Create(context.Background(), &agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
