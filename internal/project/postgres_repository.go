package project

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The retention policy override is stored as JSONB; rows with malformed
// JSON surface as projects without an override plus a warning, so one bad
// row cannot fail a listing.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRepository creates a new PostgreSQL project repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger}
}

const projectColumns = `
	id, name, tier, data_classification, compliance_region,
	retention_policy, created_at, updated_at
`

// Get retrieves a project by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := r.scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all projects.
func (r *PostgresRepository) List(ctx context.Context) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := r.scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

// Create creates a new project.
func (r *PostgresRepository) Create(ctx context.Context, p *Project) error {
	var policyJSON []byte
	if p.Retention != nil {
		var err error
		policyJSON, err = json.Marshal(p.Retention)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO projects (
			id, name, tier, data_classification, compliance_region,
			retention_policy, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		string(p.Tier),
		string(p.DataClassification),
		string(p.ComplianceRegion),
		policyJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// UpdateRetention replaces the project's stored policy override.
func (r *PostgresRepository) UpdateRetention(ctx context.Context, id string, policy *retention.Policy) error {
	var policyJSON []byte
	if policy != nil {
		var err error
		policyJSON, err = json.Marshal(policy)
		if err != nil {
			return err
		}
	}

	query := `
		UPDATE projects
		SET retention_policy = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, policyJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// scanProject scans one project row.
func (r *PostgresRepository) scanProject(row pgx.Row) (*Project, error) {
	var (
		p          Project
		policyJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Tier,
		&p.DataClassification,
		&p.ComplianceRegion,
		&policyJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(policyJSON) > 0 {
		var policy retention.Policy
		if err := json.Unmarshal(policyJSON, &policy); err != nil {
			r.logger.Warn().
				Str("project_id", p.ID).
				Err(err).
				Msg("malformed stored retention policy, treating as unset")
		} else {
			p.Retention = &policy
		}
	}

	return &p, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
