// Package archive defines the storage-archiver contract used by the
// retention engine and a resilient client wrapper for the object-storage
// backend that implements it.
package archive

import "context"

// FileRef identifies the stored files of a single bug report.
type FileRef struct {
	ScreenshotURL *string
	ReplayURL     *string
}

// Result aggregates the outcome of an archive operation.
type Result struct {
	FilesArchived int
	BytesArchived int64
	Errors        []string
}

// merge folds another result into this one.
func (r *Result) merge(other *Result) {
	if other == nil {
		return
	}
	r.FilesArchived += other.FilesArchived
	r.BytesArchived += other.BytesArchived
	r.Errors = append(r.Errors, other.Errors...)
}

// Archiver copies report files to cold storage before deletion.
// Implementations are provided by the object-storage collaborator.
type Archiver interface {
	// ArchiveReportFiles archives the files of a single report.
	ArchiveReportFiles(ctx context.Context, screenshotURL, replayURL *string) (*Result, error)

	// ArchiveBatch archives the files of multiple reports.
	ArchiveBatch(ctx context.Context, refs []FileRef) (*Result, error)
}
