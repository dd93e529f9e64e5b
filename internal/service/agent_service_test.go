package service

import (
	"context"
	"testing"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

func TestCreateAgent(t *testing.T) {
	t.Parallel()

	dispatcher, rec := newRecordingDispatcher()
	svc := NewAgentService(AgentDependencies{AgentRepo: memory.NewAgentRepository(), Dispatcher: dispatcher})

	_, err := svc.CreateAgent(context.Background(), "o1", domain.AgentRoleAgent, CreateAgentInput{Name: "Ada", Email: "ada@example.com"})
	if de := apperrors.ToDomainError(err); de == nil || de.Code != "FORBIDDEN" {
		t.Fatalf("agent actor err = %v, want forbidden", err)
	}

	agent, err := svc.CreateAgent(context.Background(), "o1", domain.AgentRoleManager, CreateAgentInput{
		Name:        "Ada",
		Email:       "ada@example.com",
		Specialties: []string{"Billing", "support"},
	})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if agent.Role != domain.AgentRoleAgent || !agent.Active || len(agent.Specialties) != 2 {
		t.Errorf("agent = %+v", agent)
	}
	if got := rec.types(); len(got) != 1 || got[0] != domain.EventTeamMemberAdded {
		t.Errorf("events = %v", got)
	}

	if _, err := svc.GetAgent(context.Background(), "o2", agent.ID); err == nil {
		t.Error("foreign owner should not see agent")
	}
	agents, err := svc.ListAgents(context.Background(), "o1")
	if err != nil || len(agents) != 1 {
		t.Errorf("ListAgents = %d, %v", len(agents), err)
	}
}

func TestCreateAgent_Validation(t *testing.T) {
	t.Parallel()

	svc := NewAgentService(AgentDependencies{AgentRepo: memory.NewAgentRepository()})
	tests := []CreateAgentInput{
		{Email: "x@example.com"},
		{Name: "X", Email: "x@example.com", Role: "owner"},
		{Name: "X", Email: "x@example.com", Specialties: []string{"shipping"}},
	}
	for _, input := range tests {
		_, err := svc.CreateAgent(context.Background(), "o1", domain.AgentRoleManager, input)
		if de := apperrors.ToDomainError(err); de == nil || de.Code != "VALIDATION_FAILED" {
			t.Errorf("CreateAgent(%+v) err = %v", input, err)
		}
	}
}
