package domain

import "time"

// AgentRole enumerates team roles relevant for routing.
type AgentRole string

const (
	AgentRoleAgent   AgentRole = "agent"
	AgentRoleManager AgentRole = "manager"
)

// ParseAgentRole reports whether raw names a known role. Empty means agent.
func ParseAgentRole(raw string) (AgentRole, bool) {
	switch r := AgentRole(raw); r {
	case "":
		return AgentRoleAgent, true
	case AgentRoleAgent, AgentRoleManager:
		return r, true
	}
	return "", false
}

// Agent models a team member who can own tickets.
type Agent struct {
	ID          string
	OwnerID     string
	Name        string
	Email       string
	Role        AgentRole
	Active      bool
	Specialties []Category
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSpecialty reports whether the agent lists the category.
func (a *Agent) HasSpecialty(c Category) bool {
	for _, s := range a.Specialties {
		if s == c {
			return true
		}
	}
	return false
}

// Workload is a derived, per-call snapshot of an agent's ticket load.
type Workload struct {
	AgentID         string     `json:"agent_id"`
	AgentName       string     `json:"agent_name"`
	PendingCount    int        `json:"pending_count"`
	TotalAssigned   int        `json:"total_assigned"`
	ResolutionRate  float64    `json:"resolution_rate"`
	AvgReplyMinutes float64    `json:"avg_reply_minutes"`
	LastAssignedAt  *time.Time `json:"last_assigned_at,omitempty"`
}
