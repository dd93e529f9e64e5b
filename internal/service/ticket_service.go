package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/classifier"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TicketService coordinates ticket ingestion and reply handling.
type TicketService struct {
	tickets    repository.TicketRepository
	policy     *sla.Policy
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Policy     *sla.Policy
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// IngestInput describes an inbound email.
type IngestInput struct {
	OwnerID       string
	Subject       string
	Body          string
	SenderAddress string
	ReceivedAt    time.Time
}

// NewTicketService creates the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.policy == nil {
		s.policy = sla.DefaultPolicy()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Classify runs the classifier without persisting anything.
func (s *TicketService) Classify(subject, body string) domain.Classification {
	return classifier.Classify(subject, body)
}

// Ingest classifies an inbound email and stores it as a pending ticket with
// its SLA deadline fixed from the classified priority.
func (s *TicketService) Ingest(ctx context.Context, input IngestInput) (*domain.Ticket, domain.Classification, error) {
	if strings.TrimSpace(input.Subject) == "" && strings.TrimSpace(input.Body) == "" {
		return nil, domain.Classification{}, apperrors.NewValidationError("subject or body is required", nil)
	}
	if strings.TrimSpace(input.SenderAddress) == "" {
		return nil, domain.Classification{}, apperrors.NewValidationError("sender is required", nil)
	}
	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}
	receivedAt = receivedAt.UTC()

	cls := classifier.Classify(input.Subject, input.Body)
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		OwnerID:       input.OwnerID,
		Subject:       input.Subject,
		Body:          input.Body,
		SenderAddress: strings.TrimSpace(input.SenderAddress),
		Priority:      cls.Priority,
		Category:      cls.Category,
		Sentiment:     cls.Sentiment,
		Tags:          cls.Tags,
		Status:        domain.TicketStatusPending,
		ReceivedAt:    receivedAt,
		SLADeadline:   s.policy.Deadline(cls.Priority, receivedAt),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, domain.Classification{}, apperrors.MapError(err)
	}

	s.publish(ctx, domain.EventEmailReceived, ticket, events.EmailReceivedPayload{
		TicketID:    ticket.ID,
		Subject:     ticket.Subject,
		Sender:      ticket.SenderAddress,
		Priority:    cls.Priority,
		Category:    cls.Category,
		Sentiment:   cls.Sentiment,
		Tags:        cls.Tags,
		Confidence:  cls.Confidence,
		SLADeadline: ticket.SLADeadline,
	})
	return ticket, cls, nil
}

// MarkReplied records a reply. The first reply time is kept once set.
func (s *TicketService) MarkReplied(ctx context.Context, ownerID, ticketID string, at time.Time) (*domain.Ticket, error) {
	if err := s.authorize(ctx, ownerID, ticketID); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}
	ticket, err := s.tickets.MarkReplied(ctx, ticketID, at.UTC())
	if err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}
	s.publish(ctx, domain.EventEmailReplied, ticket, events.EmailRepliedPayload{
		TicketID:     ticket.ID,
		FirstReplyAt: *ticket.FirstReplyAt,
		WithinSLA:    !ticket.FirstReplyAt.After(ticket.SLADeadline),
	})
	return ticket, nil
}

// Resolve closes the ticket.
func (s *TicketService) Resolve(ctx context.Context, ownerID, ticketID string) (*domain.Ticket, error) {
	if err := s.authorize(ctx, ownerID, ticketID); err != nil {
		return nil, err
	}
	at := s.now().UTC()
	ticket, err := s.tickets.Resolve(ctx, ticketID, at)
	if err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}
	s.publish(ctx, domain.EventEmailResolved, ticket, events.EmailResolvedPayload{
		TicketID:   ticket.ID,
		ResolvedAt: at,
	})
	return ticket, nil
}

func (s *TicketService) authorize(ctx context.Context, ownerID, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return s.mapTicketErr(err, ticketID)
	}
	if ticket.OwnerID != ownerID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return nil
}

func (s *TicketService) mapTicketErr(err error, ticketID string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(fmt.Errorf("ticket %s: %w", ticketID, err))
}

func (s *TicketService) publish(ctx context.Context, eventType domain.EventType, ticket *domain.Ticket, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OwnerID:   ticket.OwnerID,
		TicketID:  ticket.ID,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish ticket event failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
