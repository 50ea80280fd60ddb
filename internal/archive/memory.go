package archive

import (
	"context"
	"errors"
	"sync"
)

// file size assumed when the backend doesn't report one; only used by the
// in-memory archiver for byte accounting in tests.
const assumedFileSize = 1024

// InMemoryArchiver is an in-memory implementation of Archiver.
// This is intended for testing. FailURLs injects per-URL failures.
type InMemoryArchiver struct {
	mu       sync.Mutex
	archived []string

	// FailURLs maps URLs that should fail to archive.
	FailURLs map[string]bool

	// FailAll makes every call return an error, for breaker tests.
	FailAll bool
}

// ErrArchiveUnavailable is returned when the fake backend is down.
var ErrArchiveUnavailable = errors.New("archive backend unavailable")

// NewInMemoryArchiver creates a new in-memory archiver.
func NewInMemoryArchiver() *InMemoryArchiver {
	return &InMemoryArchiver{
		FailURLs: make(map[string]bool),
	}
}

// ArchiveReportFiles archives the files of a single report.
func (a *InMemoryArchiver) ArchiveReportFiles(_ context.Context, screenshotURL, replayURL *string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.FailAll {
		return nil, ErrArchiveUnavailable
	}

	result := &Result{}
	for _, url := range []*string{screenshotURL, replayURL} {
		if url == nil || *url == "" {
			continue
		}
		if a.FailURLs[*url] {
			result.Errors = append(result.Errors, "archive failed: "+*url)
			continue
		}
		a.archived = append(a.archived, *url)
		result.FilesArchived++
		result.BytesArchived += assumedFileSize
	}

	if len(result.Errors) > 0 {
		return result, ErrArchiveUnavailable
	}
	return result, nil
}

// ArchiveBatch archives the files of multiple reports.
func (a *InMemoryArchiver) ArchiveBatch(ctx context.Context, refs []FileRef) (*Result, error) {
	total := &Result{}
	for _, ref := range refs {
		result, err := a.ArchiveReportFiles(ctx, ref.ScreenshotURL, ref.ReplayURL)
		total.merge(result)
		if err != nil && len(total.Errors) == 0 {
			total.Errors = append(total.Errors, err.Error())
		}
	}
	return total, nil
}

// Archived returns the URLs archived so far.
func (a *InMemoryArchiver) Archived() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.archived))
	copy(out, a.archived)
	return out
}

// Ensure InMemoryArchiver implements Archiver interface.
var _ Archiver = (*InMemoryArchiver)(nil)
