package report

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
// It mirrors the SQL guards: soft delete and hard delete skip legal-hold
// rows, restore only touches soft-deleted rows.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]*BugReport
}

// NewInMemoryRepository creates a new in-memory bug report repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reports: make(map[string]*BugReport),
	}
}

// Create stores a new bug report.
func (r *InMemoryRepository) Create(_ context.Context, report *BugReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *report
	r.reports[report.ID] = &cpy
	return nil
}

// Get retrieves a report by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*BugReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}

	cpy := *report
	return &cpy, nil
}

// FindByIDs retrieves the reports for the given IDs.
func (r *InMemoryRepository) FindByIDs(_ context.Context, ids []string) ([]*BugReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reports []*BugReport
	for _, id := range ids {
		if report, ok := r.reports[id]; ok {
			cpy := *report
			reports = append(reports, &cpy)
		}
	}
	return reports, nil
}

// FindEligibleForDeletion returns reports created before cutoff that are not
// soft-deleted and not on legal hold, oldest first.
func (r *InMemoryRepository) FindEligibleForDeletion(_ context.Context, projectID string, cutoff time.Time) ([]*BugReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reports []*BugReport
	for _, report := range r.reports {
		if report.ProjectID != projectID {
			continue
		}
		if !report.CreatedAt.Before(cutoff) {
			continue
		}
		if report.DeletedAt != nil || report.LegalHold {
			continue
		}
		cpy := *report
		reports = append(reports, &cpy)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports, nil
}

// SoftDelete marks the given reports deleted.
func (r *InMemoryRepository) SoftDelete(_ context.Context, ids []string, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var affected int64
	for _, id := range ids {
		report, ok := r.reports[id]
		if !ok || report.DeletedAt != nil || report.LegalHold {
			continue
		}
		report.DeletedAt = &now
		by := userID
		report.DeletedBy = &by
		report.UpdatedAt = now
		affected++
	}
	return affected, nil
}

// Restore clears the deletion mark on soft-deleted reports.
func (r *InMemoryRepository) Restore(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, id := range ids {
		report, ok := r.reports[id]
		if !ok || report.DeletedAt == nil {
			continue
		}
		report.DeletedAt = nil
		report.DeletedBy = nil
		report.UpdatedAt = time.Now()
		affected++
	}
	return affected, nil
}

// HardDelete permanently removes the given reports, excluding legal-hold rows.
// The transactional handle is accepted for interface compatibility; the
// in-memory store has no transactions.
func (r *InMemoryRepository) HardDelete(_ context.Context, _ Tx, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, id := range ids {
		report, ok := r.reports[id]
		if !ok || report.LegalHold {
			continue
		}
		delete(r.reports, id)
		affected++
	}
	return affected, nil
}

// SetLegalHold sets or clears the legal hold flag.
func (r *InMemoryRepository) SetLegalHold(_ context.Context, ids []string, hold bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected int64
	for _, id := range ids {
		report, ok := r.reports[id]
		if !ok || report.LegalHold == hold {
			continue
		}
		report.LegalHold = hold
		report.UpdatedAt = time.Now()
		affected++
	}
	return affected, nil
}

// CountLegalHold returns the number of reports currently on legal hold.
func (r *InMemoryRepository) CountLegalHold(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, report := range r.reports {
		if report.LegalHold {
			count++
		}
	}
	return count, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
