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

// WebhookRepository holds subscriptions in memory.
type WebhookRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.WebhookSubscription
}

var _ repository.WebhookRepository = (*WebhookRepository)(nil)

// NewWebhookRepository initializes an empty store.
func NewWebhookRepository() *WebhookRepository {
	return &WebhookRepository{subs: make(map[string]*domain.WebhookSubscription)}
}

func (r *WebhookRepository) Create(_ context.Context, sub *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.subs[sub.ID] = copySubscription(sub)
	return nil
}

func (r *WebhookRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WebhookSubscription
	for _, s := range r.subs {
		if s.OwnerID == ownerID {
			result = append(result, *copySubscription(s))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *WebhookRepository) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(r.subs, id)
	return nil
}

func (r *WebhookRepository) RecordDelivery(_ context.Context, id string, outcome domain.DeliveryOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	status := outcome.StatusCode
	triggered := outcome.TriggeredAt
	s.LastStatus = &status
	s.LastTriggeredAt = &triggered
	s.LastError = nil
	if outcome.Error != "" {
		msg := outcome.Error
		s.LastError = &msg
	}
	s.UpdatedAt = time.Now()
	return nil
}

func copySubscription(s *domain.WebhookSubscription) *domain.WebhookSubscription {
	cp := *s
	cp.Events = append([]domain.EventType(nil), s.Events...)
	if s.Headers != nil {
		cp.Headers = make(map[string]string, len(s.Headers))
		for k, v := range s.Headers {
			cp.Headers[k] = v
		}
	}
	if s.LastStatus != nil {
		v := *s.LastStatus
		cp.LastStatus = &v
	}
	if s.LastError != nil {
		v := *s.LastError
		cp.LastError = &v
	}
	if s.LastTriggeredAt != nil {
		v := *s.LastTriggeredAt
		cp.LastTriggeredAt = &v
	}
	return &cp
}
