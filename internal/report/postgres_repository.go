package report

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL bug report repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const reportColumns = `
	id, project_id, title, severity,
	screenshot_url, replay_url, storage_bytes,
	created_at, updated_at, deleted_at, deleted_by, legal_hold
`

// Create stores a new bug report.
func (r *PostgresRepository) Create(ctx context.Context, report *BugReport) error {
	query := `
		INSERT INTO bug_reports (
			id, project_id, title, severity,
			screenshot_url, replay_url, storage_bytes,
			created_at, updated_at, legal_hold
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.ProjectID,
		report.Title,
		report.Severity,
		report.ScreenshotURL,
		report.ReplayURL,
		report.StorageBytes,
		report.CreatedAt,
		report.UpdatedAt,
		report.LegalHold,
	)
	return err
}

// Get retrieves a report by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*BugReport, error) {
	query := `SELECT ` + reportColumns + ` FROM bug_reports WHERE id = $1`

	var report BugReport
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.ProjectID,
		&report.Title,
		&report.Severity,
		&report.ScreenshotURL,
		&report.ReplayURL,
		&report.StorageBytes,
		&report.CreatedAt,
		&report.UpdatedAt,
		&report.DeletedAt,
		&report.DeletedBy,
		&report.LegalHold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	return &report, nil
}

// FindByIDs retrieves the reports for the given IDs.
func (r *PostgresRepository) FindByIDs(ctx context.Context, ids []string) ([]*BugReport, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + reportColumns + ` FROM bug_reports WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// FindEligibleForDeletion returns reports created before cutoff that are not
// soft-deleted and not on legal hold.
func (r *PostgresRepository) FindEligibleForDeletion(ctx context.Context, projectID string, cutoff time.Time) ([]*BugReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM bug_reports
		WHERE project_id = $1
		  AND created_at < $2
		  AND deleted_at IS NULL
		  AND legal_hold = FALSE
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, projectID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReports(rows)
}

// SoftDelete marks the given reports deleted. The legal_hold and deleted_at
// guards enforce the lifecycle invariants at the SQL layer.
func (r *PostgresRepository) SoftDelete(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE bug_reports
		SET deleted_at = NOW(), deleted_by = $2, updated_at = NOW()
		WHERE id = ANY($1)
		  AND deleted_at IS NULL
		  AND legal_hold = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, ids, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Restore clears the deletion mark on soft-deleted reports.
func (r *PostgresRepository) Restore(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE bug_reports
		SET deleted_at = NULL, deleted_by = NULL, updated_at = NOW()
		WHERE id = ANY($1)
		  AND deleted_at IS NOT NULL
	`

	tag, err := r.pool.Exec(ctx, query, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// HardDelete permanently removes the given reports inside the supplied
// transaction. Legal-hold rows are excluded by the WHERE guard.
func (r *PostgresRepository) HardDelete(ctx context.Context, tx Tx, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		DELETE FROM bug_reports
		WHERE id = ANY($1)
		  AND legal_hold = FALSE
	`

	tag, err := tx.Exec(ctx, query, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetLegalHold sets or clears the legal hold flag. Rows already in the
// requested state are excluded so the returned count reflects actual changes.
func (r *PostgresRepository) SetLegalHold(ctx context.Context, ids []string, hold bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE bug_reports
		SET legal_hold = $2, updated_at = NOW()
		WHERE id = ANY($1)
		  AND legal_hold <> $2
	`

	tag, err := r.pool.Exec(ctx, query, ids, hold)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountLegalHold returns the number of reports currently on legal hold.
func (r *PostgresRepository) CountLegalHold(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bug_reports WHERE legal_hold = TRUE`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scanReports scans all rows into BugReports.
func scanReports(rows pgx.Rows) ([]*BugReport, error) {
	var reports []*BugReport
	for rows.Next() {
		var report BugReport
		err := rows.Scan(
			&report.ID,
			&report.ProjectID,
			&report.Title,
			&report.Severity,
			&report.ScreenshotURL,
			&report.ReplayURL,
			&report.StorageBytes,
			&report.CreatedAt,
			&report.UpdatedAt,
			&report.DeletedAt,
			&report.DeletedBy,
			&report.LegalHold,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
