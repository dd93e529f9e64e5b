package dto

import "github.com/spec-kit/sla-engine/internal/domain"

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Specialties []string `json:"specialties"`
}

// AgentResponse describes a roster entry.
type AgentResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Role        domain.AgentRole  `json:"role"`
	Active      bool              `json:"active"`
	Specialties []domain.Category `json:"specialties"`
}

// NewAgentResponse maps an agent.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	specialties := a.Specialties
	if specialties == nil {
		specialties = []domain.Category{}
	}
	return AgentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        a.Role,
		Active:      a.Active,
		Specialties: specialties,
	}
}
