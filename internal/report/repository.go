package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is the transactional handle required for irreversible operations.
// pgx.Tx satisfies it; passing a plain pool is a caller error that the
// retention service rejects before any row is touched.
type Tx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository defines the persistence operations the retention engine needs.
// It is deliberately narrow: no generic CRUD surface, just the lifecycle
// operations plus the lookups used by preview and hard delete.
type Repository interface {
	// Create stores a new bug report.
	Create(ctx context.Context, r *BugReport) error

	// Get retrieves a report by ID.
	// Returns ErrReportNotFound if the report doesn't exist.
	Get(ctx context.Context, id string) (*BugReport, error)

	// FindByIDs retrieves the reports for the given IDs.
	// Missing IDs are skipped, not an error.
	FindByIDs(ctx context.Context, ids []string) ([]*BugReport, error)

	// FindEligibleForDeletion returns reports in the project created before
	// cutoff that are not soft-deleted and not on legal hold, ordered oldest
	// first.
	FindEligibleForDeletion(ctx context.Context, projectID string, cutoff time.Time) ([]*BugReport, error)

	// SoftDelete marks the given reports deleted. Rows on legal hold or
	// already soft-deleted are left untouched. Returns the number of rows
	// actually changed.
	SoftDelete(ctx context.Context, ids []string, userID string) (int64, error)

	// Restore clears the deletion mark on soft-deleted reports. Active rows
	// are not counted. Returns the number of rows actually changed.
	Restore(ctx context.Context, ids []string) (int64, error)

	// HardDelete permanently removes the given reports inside the supplied
	// transaction. Rows on legal hold are excluded. Returns the number of
	// rows removed.
	HardDelete(ctx context.Context, tx Tx, ids []string) (int64, error)

	// SetLegalHold sets or clears the legal hold flag. Rows already in the
	// requested state are not counted. Returns the number of rows changed.
	SetLegalHold(ctx context.Context, ids []string, hold bool) (int64, error)

	// CountLegalHold returns the number of reports currently on legal hold.
	CountLegalHold(ctx context.Context) (int64, error)
}
