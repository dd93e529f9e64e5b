package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository/memory"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

type assignFixture struct {
	tickets *memory.TicketRepository
	agents  *memory.AgentRepository
	rec     *eventRecorder
	svc     *AssignmentService
}

func newAssignFixture() *assignFixture {
	tickets := memory.NewTicketRepository()
	agents := memory.NewAgentRepository()
	dispatcher, rec := newRecordingDispatcher()
	svc := NewAssignmentService(AssignmentDependencies{
		TicketRepo: tickets,
		AgentRepo:  agents,
		Dispatcher: dispatcher,
		Now:        fixedNow,
	})
	return &assignFixture{tickets: tickets, agents: agents, rec: rec, svc: svc}
}

// load gives the agent n pending assigned tickets.
func (f *assignFixture) load(t *testing.T, agentID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", AssignedAgentID: strPtr(agentID)})
	}
}

func (f *assignFixture) newTicket(t *testing.T, priority domain.TicketPriority, category domain.Category) string {
	t.Helper()
	return seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", Priority: priority, Category: category}).ID
}

func TestAssign_LeastLoaded(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	for id, pending := range map[string]int{"a1": 5, "a2": 2, "a3": 8} {
		seedAgent(t, f.agents, domain.Agent{ID: id, OwnerID: "o1", Active: true})
		f.load(t, id, pending)
	}
	ticketID := f.newTicket(t, domain.TicketPriorityMedium, domain.CategorySupport)

	res, err := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{Type: StrategyLeastLoaded})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !res.Assigned || res.AgentID != "a2" {
		t.Fatalf("result = %+v, want a2", res)
	}

	stored, _ := f.tickets.GetByID(context.Background(), ticketID)
	if stored.AssignedAgentID == nil || *stored.AssignedAgentID != "a2" {
		t.Errorf("stored owner = %v", stored.AssignedAgentID)
	}
	if got := f.rec.types(); len(got) != 1 || got[0] != domain.EventEmailAssigned {
		t.Errorf("events = %v", got)
	}
}

func TestAssign_TieBreaksOnLowestID(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	for _, id := range []string{"c", "a", "b"} {
		seedAgent(t, f.agents, domain.Agent{ID: id, OwnerID: "o1", Active: true})
	}
	res, _ := f.svc.Assign(context.Background(), "o1", f.newTicket(t, "", ""), Strategy{})
	if res.AgentID != "a" {
		t.Errorf("agent = %q, want a", res.AgentID)
	}
}

func TestAssign_Eligibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		priority domain.TicketPriority
		category domain.Category
		strategy Strategy
		want     string
	}{
		{"manager skipped by default", domain.TicketPriorityHigh, domain.CategoryComplaint, Strategy{}, ""},
		{"manager for high complaint", domain.TicketPriorityHigh, domain.CategoryComplaint, Strategy{ConsiderPriority: true}, "m1"},
		{"manager not for medium complaint", domain.TicketPriorityMedium, domain.CategoryComplaint, Strategy{ConsiderPriority: true}, ""},
		{"manager not for high billing", domain.TicketPriorityHigh, domain.CategoryBilling, Strategy{ConsiderPriority: true}, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newAssignFixture()
			seedAgent(t, f.agents, domain.Agent{ID: "m1", OwnerID: "o1", Role: domain.AgentRoleManager, Active: true})
			seedAgent(t, f.agents, domain.Agent{ID: "a0", OwnerID: "o1", Active: false})

			res, err := f.svc.Assign(context.Background(), "o1", f.newTicket(t, tt.priority, tt.category), tt.strategy)
			if err != nil {
				t.Fatalf("Assign: %v", err)
			}
			if tt.want == "" {
				if res.Assigned || res.Reason != ReasonNoEligibleAgents {
					t.Errorf("result = %+v, want no eligible agents", res)
				}
				return
			}
			if res.AgentID != tt.want {
				t.Errorf("agent = %q, want %q", res.AgentID, tt.want)
			}
		})
	}
}

func TestAssign_SpecialtyAndPerformance(t *testing.T) {
	t.Parallel()

	t.Run("specialty bonus outweighs one pending ticket", func(t *testing.T) {
		f := newAssignFixture()
		seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true, Specialties: []domain.Category{domain.CategoryBilling}})
		seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Active: true})
		f.load(t, "a1", 1)

		res, _ := f.svc.Assign(context.Background(), "o1", f.newTicket(t, "", domain.CategoryBilling), Strategy{})
		if res.AgentID != "a1" {
			t.Errorf("agent = %q, want a1", res.AgentID)
		}
	})

	t.Run("specialty-match ignores load unless asked", func(t *testing.T) {
		f := newAssignFixture()
		seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true, Specialties: []domain.Category{domain.CategoryBilling}})
		seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Active: true})
		f.load(t, "a1", 5)

		ticketID := f.newTicket(t, "", domain.CategoryBilling)
		res, _ := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{Type: StrategySpecialtyMatch})
		if res.AgentID != "a1" {
			t.Errorf("agent = %q, want a1", res.AgentID)
		}

		other := f.newTicket(t, "", domain.CategoryBilling)
		res, _ = f.svc.Assign(context.Background(), "o1", other, Strategy{Type: StrategySpecialtyMatch, ConsiderWorkload: true})
		if res.AgentID != "a2" {
			t.Errorf("agent with workload = %q, want a2", res.AgentID)
		}
	})

	t.Run("resolution rate lowers score", func(t *testing.T) {
		f := newAssignFixture()
		seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true})
		seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Active: true})
		// a1: 2 pending, 2 resolved -> 2 - 0.5*5 = -0.5; a2: 1 pending -> 1.
		f.load(t, "a1", 2)
		for i := 0; i < 2; i++ {
			seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", AssignedAgentID: strPtr("a1"), Status: domain.TicketStatusResolved, IsResolved: true})
		}
		f.load(t, "a2", 1)

		ticketID := f.newTicket(t, "", "")
		res, _ := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{ConsiderPerformance: true})
		if res.AgentID != "a1" {
			t.Errorf("agent = %q, want a1", res.AgentID)
		}
	})
}

func TestAssign_RoundRobin(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true})
	seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Active: true})
	seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", AssignedAgentID: strPtr("a1"), AssignedAt: timePtr(time.Now().Add(-time.Hour))})

	rr := Strategy{Type: StrategyRoundRobin}
	first, _ := f.svc.Assign(context.Background(), "o1", f.newTicket(t, "", ""), rr)
	second, _ := f.svc.Assign(context.Background(), "o1", f.newTicket(t, "", ""), rr)
	if first.AgentID != "a2" || second.AgentID != "a1" {
		t.Errorf("rotation = %s, %s; want a2, a1", first.AgentID, second.AgentID)
	}
}

func TestAssign_FailureReasons(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true})
	ticketID := f.newTicket(t, "", "")
	foreign := seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o2"}).ID

	if res, _ := f.svc.Assign(context.Background(), "o1", "missing", Strategy{}); res.Reason != ReasonTicketNotFound {
		t.Errorf("missing ticket reason = %q", res.Reason)
	}
	if res, _ := f.svc.Assign(context.Background(), "o1", foreign, Strategy{}); res.Reason != ReasonTicketNotFound {
		t.Errorf("foreign ticket reason = %q", res.Reason)
	}
	if res, _ := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{}); !res.Assigned {
		t.Fatalf("first assign failed: %+v", res)
	}
	if res, _ := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{}); res.Reason != ReasonAlreadyAssigned {
		t.Errorf("second assign reason = %q", res.Reason)
	}
}

func TestAssign_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true})
	seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Active: true})
	ticketID := f.newTicket(t, "", "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Assign(context.Background(), "o1", ticketID, Strategy{})
			if err != nil {
				t.Errorf("Assign: %v", err)
				return
			}
			if res.Assigned {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if res.Reason != ReasonAlreadyAssigned {
				t.Errorf("loser reason = %q", res.Reason)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
}

func TestAssignBulk_CountsAddUp(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Active: true})
	ids := []string{f.newTicket(t, "", ""), "missing", f.newTicket(t, "", ""), "also-missing"}

	bulk := f.svc.AssignBulk(context.Background(), "o1", ids, Strategy{})
	if bulk.Assigned != 2 || bulk.Failed != 2 {
		t.Errorf("bulk = %d assigned / %d failed, want 2/2", bulk.Assigned, bulk.Failed)
	}
	if bulk.Assigned+bulk.Failed != len(ids) || len(bulk.Results) != len(ids) {
		t.Errorf("counts do not cover all %d ids: %+v", len(ids), bulk)
	}
}

func TestGetTeamWorkload(t *testing.T) {
	t.Parallel()

	f := newAssignFixture()
	seedAgent(t, f.agents, domain.Agent{ID: "a1", OwnerID: "o1", Name: "Ada", Active: true})
	seedAgent(t, f.agents, domain.Agent{ID: "a2", OwnerID: "o1", Name: "Bo", Active: true})

	received := testNow.Add(-2 * time.Hour)
	f.load(t, "a1", 1)
	seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", AssignedAgentID: strPtr("a1"), Status: domain.TicketStatusReplied,
		ReceivedAt: received, FirstReplyAt: timePtr(received.Add(30 * time.Minute))})
	seedTicket(t, f.tickets, domain.Ticket{OwnerID: "o1", AssignedAgentID: strPtr("a1"), Status: domain.TicketStatusResolved, IsResolved: true,
		ReceivedAt: received, FirstReplyAt: timePtr(received.Add(90 * time.Minute))})

	workloads, err := f.svc.GetTeamWorkload(context.Background(), "o1")
	if err != nil {
		t.Fatalf("GetTeamWorkload: %v", err)
	}
	if len(workloads) != 2 || workloads[0].AgentID != "a1" {
		t.Fatalf("workloads = %+v", workloads)
	}
	w := workloads[0]
	if w.AgentName != "Ada" || w.TotalAssigned != 3 || w.PendingCount != 1 {
		t.Errorf("a1 = %+v", w)
	}
	if w.ResolutionRate < 0.333 || w.ResolutionRate > 0.334 {
		t.Errorf("resolution rate = %v, want 1/3", w.ResolutionRate)
	}
	if w.AvgReplyMinutes != 60 {
		t.Errorf("avg reply = %v, want 60", w.AvgReplyMinutes)
	}
	if workloads[1].TotalAssigned != 0 {
		t.Errorf("a2 = %+v", workloads[1])
	}
}

func TestParseStrategyType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    StrategyType
		wantErr bool
	}{
		{"", StrategyLeastLoaded, false},
		{"least-loaded", StrategyLeastLoaded, false},
		{"Round-Robin", StrategyRoundRobin, false},
		{"specialty-match", StrategySpecialtyMatch, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		tt := tt
		got, err := ParseStrategyType(tt.raw)
		if tt.wantErr {
			de := apperrors.ToDomainError(err)
			if err == nil || de.Code != "VALIDATION_FAILED" {
				t.Errorf("ParseStrategyType(%q) err = %v, want validation error", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStrategyType(%q) = %q, %v", tt.raw, got, err)
		}
	}
}
