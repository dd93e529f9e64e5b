// Package memory provides in-memory repository implementations. Suitable for
// dev mode without a database and for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// TicketRepository holds tickets in memory.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	now     func() time.Time
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository initializes an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{
		tickets: make(map[string]*domain.Ticket),
		now:     time.Now,
	}
}

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := r.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTicket(t), nil
}

func (r *TicketRepository) ListAtRisk(_ context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		if ownerID != "" && t.OwnerID != ownerID {
			continue
		}
		if t.Status != domain.TicketStatusPending || t.IsResolved || t.SLADeadline.After(cutoff) {
			continue
		}
		result = append(result, *copyTicket(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SLADeadline.Before(result[j].SLADeadline)
	})
	return result, nil
}

func (r *TicketRepository) ListAssigned(_ context.Context, ownerID string) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		if t.OwnerID == ownerID && t.IsAssigned() {
			result = append(result, *copyTicket(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.Before(result[j].ReceivedAt)
	})
	return result, nil
}

func (r *TicketRepository) AssignIfUnassigned(_ context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if t.IsAssigned() {
		return nil, domain.ErrAlreadyAssigned
	}
	id := agentID
	now := r.now()
	t.AssignedAgentID = &id
	t.AssignedAt = &now
	t.UpdatedAt = now
	return copyTicket(t), nil
}

func (r *TicketRepository) MarkReplied(_ context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t.Status = domain.TicketStatusReplied
	if t.FirstReplyAt == nil {
		replied := at
		t.FirstReplyAt = &replied
	}
	t.UpdatedAt = r.now()
	return copyTicket(t), nil
}

func (r *TicketRepository) Resolve(_ context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t.Status = domain.TicketStatusResolved
	t.IsResolved = true
	if t.FirstReplyAt == nil {
		replied := at
		t.FirstReplyAt = &replied
	}
	t.UpdatedAt = r.now()
	return copyTicket(t), nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	if t.FirstReplyAt != nil {
		v := *t.FirstReplyAt
		cp.FirstReplyAt = &v
	}
	if t.AssignedAgentID != nil {
		v := *t.AssignedAgentID
		cp.AssignedAgentID = &v
	}
	if t.AssignedAt != nil {
		v := *t.AssignedAt
		cp.AssignedAt = &v
	}
	return &cp
}
