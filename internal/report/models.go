// Package report provides bug report lifecycle management.
package report

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrReportNotFound = errors.New("bug report not found")
)

// BugReport represents a captured bug report with its lifecycle fields.
//
// Lifecycle: a report starts active. A retention run soft-deletes it by
// setting DeletedAt/DeletedBy; restore clears both. Hard delete removes the
// row permanently. LegalHold blocks every forward transition while true.
type BugReport struct {
	ID            string
	ProjectID     string
	Title         string
	Severity      string
	ScreenshotURL *string
	ReplayURL     *string
	StorageBytes  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
	DeletedBy     *string
	LegalHold     bool
}

// SoftDeleted reports whether the report is currently soft-deleted.
func (r *BugReport) SoftDeleted() bool {
	return r.DeletedAt != nil
}
