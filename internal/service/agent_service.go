package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// AgentService manages the owner's agent roster.
type AgentService struct {
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AgentDependencies bundles collaborators.
type AgentDependencies struct {
	AgentRepo  repository.AgentRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateAgentInput describes a new roster entry.
type CreateAgentInput struct {
	Name        string
	Email       string
	Role        string
	Specialties []string
}

// TeamMemberAddedPayload accompanies team.member.added.
type TeamMemberAddedPayload struct {
	AgentID     string            `json:"agent_id"`
	Name        string            `json:"name"`
	Role        domain.AgentRole  `json:"role"`
	Specialties []domain.Category `json:"specialties"`
}

// NewAgentService constructs the service.
func NewAgentService(deps AgentDependencies) *AgentService {
	s := &AgentService{
		agents:     deps.AgentRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func requireManager(role domain.AgentRole) error {
	if role != domain.AgentRoleManager {
		return apperrors.NewForbidden("manager role required")
	}
	return nil
}

// CreateAgent adds an active agent to the owner's roster.
func (s *AgentService) CreateAgent(ctx context.Context, ownerID string, actorRole domain.AgentRole, input CreateAgentInput) (*domain.Agent, error) {
	if err := requireManager(actorRole); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	role, ok := domain.ParseAgentRole(input.Role)
	if !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	specialties := make([]domain.Category, 0, len(input.Specialties))
	for _, raw := range input.Specialties {
		c, ok := domain.ParseCategory(strings.ToLower(strings.TrimSpace(raw)))
		if !ok {
			return nil, apperrors.NewValidationError("unknown specialty", map[string]any{"specialty": raw})
		}
		specialties = append(specialties, c)
	}

	agent := &domain.Agent{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Email:       email,
		Role:        role,
		Active:      true,
		Specialties: specialties,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      domain.EventTeamMemberAdded,
			OwnerID:   ownerID,
			Timestamp: s.now(),
			Payload: TeamMemberAddedPayload{
				AgentID:     agent.ID,
				Name:        agent.Name,
				Role:        agent.Role,
				Specialties: agent.Specialties,
			},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish team member event failed", zap.String("agent_id", agent.ID), zap.Error(err))
		}
	}
	return agent, nil
}

// ListAgents returns the owner's roster ordered by id.
func (s *AgentService) ListAgents(ctx context.Context, ownerID string) ([]domain.Agent, error) {
	agents, err := s.agents.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	return agents, nil
}

// GetAgent returns one agent of the owner.
func (s *AgentService) GetAgent(ctx context.Context, ownerID, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && agent.OwnerID != ownerID) {
		return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}
