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

// AgentRepository holds agents in memory.
type AgentRepository struct {
	mu     sync.RWMutex
	agents map[string]*domain.Agent
}

var _ repository.AgentRepository = (*AgentRepository)(nil)

// NewAgentRepository initializes an empty store.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]*domain.Agent)}
}

func (r *AgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	r.agents[agent.ID] = copyAgent(agent)
	return nil
}

func (r *AgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAgent(a), nil
}

func (r *AgentRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Agent
	for _, a := range r.agents {
		if a.OwnerID == ownerID {
			result = append(result, *copyAgent(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func copyAgent(a *domain.Agent) *domain.Agent {
	cp := *a
	cp.Specialties = append([]domain.Category(nil), a.Specialties...)
	return &cp
}
