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

// AlertRepository holds alerts in memory, keyed one per ticket.
type AlertRepository struct {
	mu       sync.RWMutex
	byTicket map[string]domain.Alert
}

var _ repository.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository initializes an empty store.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{byTicket: make(map[string]domain.Alert)}
}

func (r *AlertRepository) CreateIfAbsent(_ context.Context, alert *domain.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTicket[alert.TicketID]; exists {
		return false, nil
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	r.byTicket[alert.TicketID] = *alert
	return true, nil
}

func (r *AlertRepository) ExistsForTicket(_ context.Context, ticketID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.byTicket[ticketID]
	return exists, nil
}

func (r *AlertRepository) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Alert
	for _, a := range r.byTicket {
		if a.OwnerID == ownerID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored alerts.
func (r *AlertRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTicket)
}
