package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// ListAtRisk returns unresolved pending tickets whose deadline is at or
	// before cutoff. An empty ownerID spans all owners.
	ListAtRisk(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error)
	ListAssigned(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	// AssignIfUnassigned sets the owner only when none is set. It returns
	// domain.ErrAlreadyAssigned when another caller won.
	AssignIfUnassigned(ctx context.Context, ticketID, agentID string) (*domain.Ticket, error)
	MarkReplied(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error)
	Resolve(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error)
}

const ticketColumns = `id, owner_id, subject, body, sender_address, priority, category, sentiment, tags,
               status, received_at, sla_deadline, first_reply_at, assigned_agent_id, assigned_at, is_resolved, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, owner_id, subject, body, sender_address, priority, category, sentiment, tags,
            status, received_at, sla_deadline, assigned_agent_id, is_resolved)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Body,
		ticket.SenderAddress,
		ticket.Priority,
		ticket.Category,
		ticket.Sentiment,
		ticket.Tags,
		ticket.Status,
		ticket.ReceivedAt,
		ticket.SLADeadline,
		ticket.AssignedAgentID,
		ticket.IsResolved,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) ListAtRisk(ctx context.Context, ownerID string, cutoff time.Time) ([]domain.Ticket, error) {
	clauses := []string{"status=$1", "is_resolved=FALSE", "sla_deadline <= $2"}
	args := []any{domain.TicketStatusPending, cutoff}
	if ownerID != "" {
		args = append(args, ownerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY sla_deadline ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAssigned(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE owner_id=$1 AND assigned_agent_id IS NOT NULL ORDER BY received_at ASC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) AssignIfUnassigned(ctx context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET assigned_agent_id=$1, assigned_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND assigned_agent_id IS NULL
        RETURNING ` + ticketColumns
	ticket, err := r.fetchSingle(ctx, query, agentID, ticketID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, getErr := r.GetByID(ctx, ticketID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrAlreadyAssigned
}

func (r *ticketRepository) MarkReplied(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, first_reply_at=COALESCE(first_reply_at, $2), updated_at=NOW()
        WHERE id=$3
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, domain.TicketStatusReplied, at, ticketID)
}

func (r *ticketRepository) Resolve(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$1, is_resolved=TRUE, first_reply_at=COALESCE(first_reply_at, $2), updated_at=NOW()
        WHERE id=$3
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, domain.TicketStatusResolved, at, ticketID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Body,
		&ticket.SenderAddress,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Sentiment,
		&ticket.Tags,
		&ticket.Status,
		&ticket.ReceivedAt,
		&ticket.SLADeadline,
		&ticket.FirstReplyAt,
		&ticket.AssignedAgentID,
		&ticket.AssignedAt,
		&ticket.IsResolved,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
