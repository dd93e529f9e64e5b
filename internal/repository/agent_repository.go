package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AgentRepository handles persistence for team members.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO agents (id, owner_id, name, email, role, active_flag, specialties)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.ID,
		agent.OwnerID,
		agent.Name,
		agent.Email,
		agent.Role,
		agent.Active,
		categoriesToStrings(agent.Specialties),
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	const query = `
        SELECT id, owner_id, name, email, role, active_flag, specialties, created_at, updated_at
        FROM agents WHERE id=$1`

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return agent, nil
}

func (r *agentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Agent, error) {
	const query = `
        SELECT id, owner_id, name, email, role, active_flag, specialties, created_at, updated_at
        FROM agents WHERE owner_id=$1 ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	var specialties []string
	if err := row.Scan(
		&agent.ID,
		&agent.OwnerID,
		&agent.Name,
		&agent.Email,
		&agent.Role,
		&agent.Active,
		&specialties,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	agent.Specialties = stringsToCategories(specialties)
	return &agent, nil
}

func categoriesToStrings(in []domain.Category) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}

func stringsToCategories(in []string) []domain.Category {
	out := make([]domain.Category, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Category(s))
	}
	return out
}
