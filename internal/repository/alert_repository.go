package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AlertRepository stores SLA alerts. The store enforces one alert per ticket.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless any alert already exists for
	// its ticket. It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error)
	ExistsForTicket(ctx context.Context, ticketID string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Alert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository constructs repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO alerts (id, ticket_id, owner_id, type, message, is_read)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id) DO NOTHING
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		alert.ID,
		alert.TicketID,
		alert.OwnerID,
		alert.Type,
		alert.Message,
		alert.IsRead,
	).Scan(&alert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *alertRepository) ExistsForTicket(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM alerts WHERE ticket_id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *alertRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, owner_id, type, message, is_read, created_at
        FROM alerts WHERE owner_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Alert
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.TicketID,
			&alert.OwnerID,
			&alert.Type,
			&alert.Message,
			&alert.IsRead,
			&alert.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, alert)
	}
	return result, rows.Err()
}
