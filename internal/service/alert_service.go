package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
)

const defaultScanConcurrency = 8

// AlertService scans for tickets at risk of breaching their SLA and raises
// at most one alert per ticket.
type AlertService struct {
	tickets     repository.TicketRepository
	alerts      repository.AlertRepository
	policy      *sla.Policy
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// AlertDependencies bundles collaborators.
type AlertDependencies struct {
	TicketRepo  repository.TicketRepository
	AlertRepo   repository.AlertRepository
	Policy      *sla.Policy
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Concurrency int
	Now         func() time.Time
}

// ScanResult reports one scan.
type ScanResult struct {
	EmailsChecked int            `json:"emailsChecked"`
	AlertsCreated int            `json:"alertsCreated"`
	Alerts        []domain.Alert `json:"alerts"`
	Partial       bool           `json:"partial,omitempty"`
}

// NewAlertService creates the service.
func NewAlertService(deps AlertDependencies) *AlertService {
	s := &AlertService{
		tickets:     deps.TicketRepo,
		alerts:      deps.AlertRepo,
		policy:      deps.Policy,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		concurrency: deps.Concurrency,
		now:         deps.Now,
	}
	if s.policy == nil {
		s.policy = sla.DefaultPolicy()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultScanConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Scan checks every pending ticket whose deadline falls inside the risk
// window and creates alerts for those without one. An empty ownerID scans all
// owners. Checks already started when ctx is cancelled run to completion; the
// partial result is returned with the context error.
func (s *AlertService) Scan(ctx context.Context, ownerID string) (ScanResult, error) {
	now := s.now()
	tickets, err := s.tickets.ListAtRisk(ctx, ownerID, s.policy.ScanCutoff(now))
	if err != nil {
		return ScanResult{}, fmt.Errorf("list at-risk tickets: %w", err)
	}

	created := make([]*domain.Alert, len(tickets))
	sem := make(chan struct{}, s.concurrency)
	done := make(chan struct{}, len(tickets))
	checkCtx := context.WithoutCancel(ctx)
	started := 0

launch:
	for i := range tickets {
		// Cancellation must win over a free slot.
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		started++
		go func(i int) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			created[i] = s.checkTicket(checkCtx, tickets[i], now)
		}(i)
	}
	for j := 0; j < started; j++ {
		<-done
	}

	result := ScanResult{EmailsChecked: started, Alerts: []domain.Alert{}}
	for _, alert := range created {
		if alert != nil {
			result.Alerts = append(result.Alerts, *alert)
		}
	}
	result.AlertsCreated = len(result.Alerts)
	s.metrics.RecordScan(started)

	if started < len(tickets) {
		result.Partial = true
		return result, ctx.Err()
	}
	return result, nil
}

// checkTicket creates the ticket's alert if none exists. Failures are logged
// and reported as no alert.
func (s *AlertService) checkTicket(ctx context.Context, ticket domain.Ticket, now time.Time) *domain.Alert {
	log := s.logger.With(zap.String("ticket_id", ticket.ID))

	exists, err := s.alerts.ExistsForTicket(ctx, ticket.ID)
	if err != nil {
		log.Warn("alert lookup failed", zap.Error(err))
		return nil
	}
	if exists {
		return nil
	}

	minutes := MinutesRemaining(ticket.SLADeadline, now)
	alert := &domain.Alert{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		OwnerID:   ticket.OwnerID,
		Type:      domain.AlertTypeDeadlineApproaching,
		Message:   fmt.Sprintf("SLA deadline in %d minutes: %s", minutes, ticket.Subject),
		CreatedAt: now,
	}
	if minutes < 0 {
		alert.Type = domain.AlertTypeOverdue
		alert.Message = fmt.Sprintf("SLA breached: %s", ticket.Subject)
	}

	ok, err := s.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		log.Warn("alert insert failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	s.metrics.RecordAlert(string(alert.Type))
	s.publishAlert(ctx, ticket, alert, minutes)
	return alert
}

func (s *AlertService) publishAlert(ctx context.Context, ticket domain.Ticket, alert *domain.Alert, minutes int) {
	if s.dispatcher == nil {
		return
	}
	payload := events.AlertPayload{
		AlertID:          alert.ID,
		TicketID:         ticket.ID,
		Type:             alert.Type,
		Message:          alert.Message,
		Subject:          ticket.Subject,
		SLADeadline:      ticket.SLADeadline,
		MinutesRemaining: minutes,
	}
	slaEvent := domain.EventSLAWarning
	if alert.Type == domain.AlertTypeOverdue {
		slaEvent = domain.EventSLABreached
	}
	for _, eventType := range []domain.EventType{domain.EventAlertCreated, slaEvent} {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			OwnerID:   ticket.OwnerID,
			TicketID:  ticket.ID,
			Timestamp: alert.CreatedAt,
			Payload:   payload,
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish alert event failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}
}

// ListAlerts returns the owner's most recent alerts.
func (s *AlertService) ListAlerts(ctx context.Context, ownerID string, limit int) ([]domain.Alert, error) {
	alerts, err := s.alerts.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return alerts, nil
}

// MinutesRemaining is the whole minutes from now until deadline, rounded
// down. A deadline 30 seconds in the past yields -1.
func MinutesRemaining(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Minutes()))
}
