// Package sla holds the single authoritative offset table that fixes SLA
// deadlines from priority, and classifies a ticket's position against it.
package sla

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// DefaultRiskWindow is how far ahead of a deadline a ticket counts as approaching.
const DefaultRiskWindow = 15 * time.Minute

// DefaultOffsets is the canonical minutes-per-priority table.
var DefaultOffsets = map[domain.TicketPriority]int{
	domain.TicketPriorityHigh:   8 * 60,
	domain.TicketPriorityMedium: 24 * 60,
	domain.TicketPriorityLow:    48 * 60,
}

// Status is where a ticket stands relative to its deadline.
type Status string

const (
	StatusOK          Status = "ok"
	StatusApproaching Status = "approaching"
	StatusOverdue     Status = "overdue"
)

// Policy maps priorities to deadline offsets.
type Policy struct {
	offsets    map[domain.TicketPriority]time.Duration
	riskWindow time.Duration
}

// NewPolicy builds a policy from minutes-per-priority. Missing priorities fall
// back to DefaultOffsets; a non-positive risk window uses DefaultRiskWindow.
func NewPolicy(offsetMinutes map[domain.TicketPriority]int, riskWindow time.Duration) (*Policy, error) {
	p := &Policy{
		offsets:    make(map[domain.TicketPriority]time.Duration, len(DefaultOffsets)),
		riskWindow: riskWindow,
	}
	if p.riskWindow <= 0 {
		p.riskWindow = DefaultRiskWindow
	}
	for priority, minutes := range DefaultOffsets {
		p.offsets[priority] = time.Duration(minutes) * time.Minute
	}
	for priority, minutes := range offsetMinutes {
		if _, ok := DefaultOffsets[priority]; !ok {
			return nil, fmt.Errorf("unknown priority %q in sla policy", priority)
		}
		if minutes <= 0 {
			return nil, fmt.Errorf("sla offset for %q must be positive, got %d", priority, minutes)
		}
		p.offsets[priority] = time.Duration(minutes) * time.Minute
	}
	return p, nil
}

// DefaultPolicy returns the canonical table with the default risk window.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(nil, DefaultRiskWindow)
	return p
}

// Offset returns the deadline offset for a priority. Unknown priorities use medium.
func (p *Policy) Offset(priority domain.TicketPriority) time.Duration {
	if d, ok := p.offsets[priority]; ok {
		return d
	}
	return p.offsets[domain.TicketPriorityMedium]
}

// RiskWindow returns the approaching window.
func (p *Policy) RiskWindow() time.Duration {
	return p.riskWindow
}

// Deadline computes the SLA deadline for a ticket received at receivedAt.
func (p *Policy) Deadline(priority domain.TicketPriority, receivedAt time.Time) time.Time {
	return receivedAt.Add(p.Offset(priority))
}

// Status classifies the ticket's deadline relative to now.
func (p *Policy) Status(ticket *domain.Ticket, now time.Time) Status {
	remaining := ticket.SLADeadline.Sub(now)
	switch {
	case remaining < 0:
		return StatusOverdue
	case remaining <= p.riskWindow:
		return StatusApproaching
	default:
		return StatusOK
	}
}

// ScanCutoff is the latest deadline a scan at now considers at risk.
func (p *Policy) ScanCutoff(now time.Time) time.Time {
	return now.Add(p.riskWindow)
}

type policyFile struct {
	RiskWindowMinutes int            `yaml:"risk_window_minutes"`
	OffsetsMinutes    map[string]int `yaml:"offsets_minutes"`
}

// LoadPolicyFile reads a YAML policy. riskWindow is used when the file
// does not set one.
func LoadPolicyFile(path string, riskWindow time.Duration) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy: %w", err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sla policy: %w", err)
	}
	offsets := make(map[domain.TicketPriority]int, len(f.OffsetsMinutes))
	for raw, minutes := range f.OffsetsMinutes {
		priority, ok := domain.ParsePriority(raw)
		if !ok {
			return nil, fmt.Errorf("unknown priority %q in sla policy", raw)
		}
		offsets[priority] = minutes
	}
	if f.RiskWindowMinutes > 0 {
		riskWindow = time.Duration(f.RiskWindowMinutes) * time.Minute
	}
	return NewPolicy(offsets, riskWindow)
}
