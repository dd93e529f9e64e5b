package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// WebhookRepository persists webhook subscriptions.
type WebhookRepository interface {
	Create(ctx context.Context, sub *domain.WebhookSubscription) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.WebhookSubscription, error)
	Delete(ctx context.Context, ownerID, id string) error
	RecordDelivery(ctx context.Context, id string, outcome domain.DeliveryOutcome) error
}

const webhookColumns = `id, owner_id, url, events, secret, headers, active_flag, retry_count,
               last_status, last_error, last_triggered_at, created_at, updated_at`

type webhookRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository constructs repository.
func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepository{pool: pool}
}

func (r *webhookRepository) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	headers := sub.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	const query = `
        INSERT INTO webhook_subscriptions (id, owner_id, url, events, secret, headers, active_flag, retry_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sub.ID,
		sub.OwnerID,
		sub.URL,
		eventsToStrings(sub.Events),
		sub.Secret,
		headers,
		sub.Active,
		sub.RetryCount,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
}

func (r *webhookRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.WebhookSubscription, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhook_subscriptions WHERE owner_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WebhookSubscription
	for rows.Next() {
		var sub domain.WebhookSubscription
		var events []string
		if err := rows.Scan(
			&sub.ID,
			&sub.OwnerID,
			&sub.URL,
			&events,
			&sub.Secret,
			&sub.Headers,
			&sub.Active,
			&sub.RetryCount,
			&sub.LastStatus,
			&sub.LastError,
			&sub.LastTriggeredAt,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sub.Events = stringsToEvents(events)
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (r *webhookRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM webhook_subscriptions WHERE id=$1 AND owner_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *webhookRepository) RecordDelivery(ctx context.Context, id string, outcome domain.DeliveryOutcome) error {
	var lastError *string
	if outcome.Error != "" {
		lastError = &outcome.Error
	}
	const query = `
        UPDATE webhook_subscriptions SET last_status=$1, last_error=$2, last_triggered_at=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, outcome.StatusCode, lastError, outcome.TriggeredAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func eventsToStrings(in []domain.EventType) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		out = append(out, string(e))
	}
	return out
}

func stringsToEvents(in []string) []domain.EventType {
	out := make([]domain.EventType, 0, len(in))
	for _, s := range in {
		out = append(out, domain.EventType(s))
	}
	return out
}
