package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// StrategyType names a base assignment strategy.
type StrategyType string

const (
	StrategyLeastLoaded    StrategyType = "least-loaded"
	StrategyRoundRobin     StrategyType = "round-robin"
	StrategySpecialtyMatch StrategyType = "specialty-match"
)

// Failure reasons reported in AssignmentResult.
const (
	ReasonTicketNotFound   = "ticket not found"
	ReasonNoEligibleAgents = "no eligible agents"
	ReasonAlreadyAssigned  = "already assigned"
	ReasonInternal         = "internal error"
)

const (
	DefaultPerformanceWeight = 5.0
	DefaultSpecialtyWeight   = 2.0
)

// Strategy is a base strategy plus explicit modifier flags.
type Strategy struct {
	Type                StrategyType `json:"type"`
	ConsiderPriority    bool         `json:"considerPriority"`
	ConsiderWorkload    bool         `json:"considerWorkload"`
	ConsiderPerformance bool         `json:"considerPerformance"`
}

// ParseStrategyType validates a strategy name. Empty selects least-loaded.
func ParseStrategyType(raw string) (StrategyType, error) {
	switch StrategyType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyLeastLoaded:
		return StrategyLeastLoaded, nil
	case StrategyRoundRobin:
		return StrategyRoundRobin, nil
	case StrategySpecialtyMatch:
		return StrategySpecialtyMatch, nil
	}
	return "", apperrors.NewValidationError("unknown assignment strategy", map[string]any{"strategy": raw})
}

// AssignmentResult is the outcome for one ticket.
type AssignmentResult struct {
	TicketID string `json:"emailId"`
	Assigned bool   `json:"assigned"`
	AgentID  string `json:"agentId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BulkAssignmentResult aggregates per-ticket outcomes.
type BulkAssignmentResult struct {
	Assigned int                `json:"assigned"`
	Failed   int                `json:"failed"`
	Results  []AssignmentResult `json:"results"`
}

// AssignmentService routes tickets to agents.
type AssignmentService struct {
	tickets           repository.TicketRepository
	agents            repository.AgentRepository
	dispatcher        events.Dispatcher
	metrics           *observability.Metrics
	logger            *zap.Logger
	performanceWeight float64
	specialtyWeight   float64
	now               func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo        repository.TicketRepository
	AgentRepo         repository.AgentRepository
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	PerformanceWeight float64
	SpecialtyWeight   float64
	Now               func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	s := &AssignmentService{
		tickets:           deps.TicketRepo,
		agents:            deps.AgentRepo,
		dispatcher:        deps.Dispatcher,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		performanceWeight: deps.PerformanceWeight,
		specialtyWeight:   deps.SpecialtyWeight,
		now:               deps.Now,
	}
	if s.performanceWeight == 0 {
		s.performanceWeight = DefaultPerformanceWeight
	}
	if s.specialtyWeight == 0 {
		s.specialtyWeight = DefaultSpecialtyWeight
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Assign selects an owner for one ticket. Not-found conditions are reported
// in the result; only store failures are returned as errors.
func (s *AssignmentService) Assign(ctx context.Context, ownerID, ticketID string, strategy Strategy) (AssignmentResult, error) {
	if strategy.Type == "" {
		strategy.Type = StrategyLeastLoaded
	}
	result, err := s.assign(ctx, ownerID, ticketID, strategy)
	s.metrics.RecordAssignment(string(strategy.Type), err == nil && result.Assigned)
	return result, err
}

// AssignBulk applies Assign to each id independently.
func (s *AssignmentService) AssignBulk(ctx context.Context, ownerID string, ticketIDs []string, strategy Strategy) BulkAssignmentResult {
	bulk := BulkAssignmentResult{Results: make([]AssignmentResult, 0, len(ticketIDs))}
	for _, id := range ticketIDs {
		result, err := s.Assign(ctx, ownerID, id, strategy)
		if err != nil {
			s.logger.Warn("bulk assignment item failed", zap.String("ticket_id", id), zap.Error(err))
			result = AssignmentResult{TicketID: id, Reason: ReasonInternal}
		}
		if result.Assigned {
			bulk.Assigned++
		} else {
			bulk.Failed++
		}
		bulk.Results = append(bulk.Results, result)
	}
	return bulk
}

// GetTeamWorkload returns a workload snapshot for each of the owner's agents,
// ordered by agent id.
func (s *AssignmentService) GetTeamWorkload(ctx context.Context, ownerID string) ([]domain.Workload, error) {
	agents, workloads, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	result := make([]domain.Workload, 0, len(agents))
	for _, a := range agents {
		result = append(result, workloads[a.ID])
	}
	return result, nil
}

func (s *AssignmentService) assign(ctx context.Context, ownerID, ticketID string, strategy Strategy) (AssignmentResult, error) {
	failed := func(reason string) (AssignmentResult, error) {
		return AssignmentResult{TicketID: ticketID, Reason: reason}, nil
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, domain.ErrNotFound) {
		return failed(ReasonTicketNotFound)
	}
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("get ticket: %w", err)
	}
	if ticket.OwnerID != ownerID {
		return failed(ReasonTicketNotFound)
	}
	if ticket.IsAssigned() {
		return failed(ReasonAlreadyAssigned)
	}

	agents, workloads, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return AssignmentResult{}, err
	}
	agent := selectAgent(*ticket, agents, workloads, strategy, s.performanceWeight, s.specialtyWeight)
	if agent == nil {
		return failed(ReasonNoEligibleAgents)
	}

	updated, err := s.tickets.AssignIfUnassigned(ctx, ticket.ID, agent.ID)
	switch {
	case errors.Is(err, domain.ErrAlreadyAssigned):
		return failed(ReasonAlreadyAssigned)
	case errors.Is(err, domain.ErrNotFound):
		return failed(ReasonTicketNotFound)
	case err != nil:
		return AssignmentResult{}, fmt.Errorf("assign ticket: %w", err)
	}

	s.publishAssigned(ctx, updated, agent.ID, strategy.Type)
	return AssignmentResult{TicketID: ticket.ID, Assigned: true, AgentID: agent.ID}, nil
}

// snapshot loads the roster and derives workloads from current ticket state.
func (s *AssignmentService) snapshot(ctx context.Context, ownerID string) ([]domain.Agent, map[string]domain.Workload, error) {
	agents, err := s.agents.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list agents: %w", err)
	}
	assigned, err := s.tickets.ListAssigned(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list assigned tickets: %w", err)
	}
	return agents, computeWorkloads(agents, assigned), nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, ticket *domain.Ticket, agentID string, strategy StrategyType) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      domain.EventEmailAssigned,
		OwnerID:   ticket.OwnerID,
		TicketID:  ticket.ID,
		Timestamp: s.now(),
		Payload: events.EmailAssignedPayload{
			TicketID: ticket.ID,
			AgentID:  agentID,
			Strategy: string(strategy),
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish assignment event failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func computeWorkloads(agents []domain.Agent, assigned []domain.Ticket) map[string]domain.Workload {
	workloads := make(map[string]domain.Workload, len(agents))
	replyTotals := make(map[string]float64)
	replyCounts := make(map[string]int)
	resolved := make(map[string]int)
	for _, a := range agents {
		workloads[a.ID] = domain.Workload{AgentID: a.ID, AgentName: a.Name}
	}

	for _, t := range assigned {
		if !t.IsAssigned() {
			continue
		}
		id := *t.AssignedAgentID
		w, ok := workloads[id]
		if !ok {
			continue
		}
		w.TotalAssigned++
		if t.IsResolved {
			resolved[id]++
		} else if t.Status == domain.TicketStatusPending || t.Status == domain.TicketStatusOverdue {
			w.PendingCount++
		}
		if t.FirstReplyAt != nil {
			replyTotals[id] += t.FirstReplyAt.Sub(t.ReceivedAt).Minutes()
			replyCounts[id]++
		}
		if t.AssignedAt != nil && (w.LastAssignedAt == nil || t.AssignedAt.After(*w.LastAssignedAt)) {
			at := *t.AssignedAt
			w.LastAssignedAt = &at
		}
		workloads[id] = w
	}

	for id, w := range workloads {
		if w.TotalAssigned > 0 {
			w.ResolutionRate = float64(resolved[id]) / float64(w.TotalAssigned)
		}
		if replyCounts[id] > 0 {
			w.AvgReplyMinutes = replyTotals[id] / float64(replyCounts[id])
		}
		workloads[id] = w
	}
	return workloads
}

func eligible(agent domain.Agent, ticket domain.Ticket, strategy Strategy) bool {
	if !agent.Active {
		return false
	}
	switch agent.Role {
	case domain.AgentRoleAgent:
		return true
	case domain.AgentRoleManager:
		return strategy.ConsiderPriority &&
			ticket.Priority == domain.TicketPriorityHigh &&
			ticket.Category == domain.CategoryComplaint
	}
	return false
}

// selectAgent returns the eligible agent chosen by strategy, or nil. Ties go
// to the lowest agent id.
func selectAgent(ticket domain.Ticket, agents []domain.Agent, workloads map[string]domain.Workload, strategy Strategy, performanceWeight, specialtyWeight float64) *domain.Agent {
	var candidates []domain.Agent
	for _, a := range agents {
		if eligible(a, ticket, strategy) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	if strategy.Type == StrategyRoundRobin {
		return pickLeastRecent(candidates, workloads)
	}

	var best *domain.Agent
	var bestScore float64
	for i := range candidates {
		a := &candidates[i]
		w := workloads[a.ID]
		score := 0.0
		if strategy.Type != StrategySpecialtyMatch || strategy.ConsiderWorkload {
			score = float64(w.PendingCount)
		}
		if strategy.ConsiderPerformance {
			score -= w.ResolutionRate * performanceWeight
		}
		if a.HasSpecialty(ticket.Category) {
			score -= specialtyWeight
		}
		if best == nil || score < bestScore {
			best, bestScore = a, score
		}
	}
	return best
}

// pickLeastRecent rotates through candidates by last assignment time; agents
// never assigned go first. Candidates must be sorted by id.
func pickLeastRecent(candidates []domain.Agent, workloads map[string]domain.Workload) *domain.Agent {
	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		last := workloads[candidates[i].ID].LastAssignedAt
		bestLast := workloads[best.ID].LastAssignedAt
		if bestLast == nil {
			break
		}
		if last == nil || last.Before(*bestLast) {
			best = &candidates[i]
		}
	}
	return best
}
