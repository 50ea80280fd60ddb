package retention

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/archive"
	"github.com/apexbridge-tech/bugspotter/internal/report"
)

// errRunAborted signals that the cumulative error rate crossed the
// configured threshold and the run must stop. It stays internal to the
// package; callers see Result.Aborted instead.
var errRunAborted = errors.New("retention run aborted: error rate exceeded")

// runState carries the run-wide counters shared by all projects within a
// single apply. The error-rate circuit breaker is cumulative over the run,
// not per project, so a steady trickle of failures across many projects
// still trips it.
type runState struct {
	processed int
	failed    int
	errors    []RunError
	opts      ApplyOptions
}

func (s *runState) recordError(projectID, reportID string, err error) {
	s.failed++
	s.errors = append(s.errors, RunError{
		ProjectID:   projectID,
		BugReportID: reportID,
		Error:       err.Error(),
		Timestamp:   time.Now().UTC(),
	})
}

// exceeded reports whether the cumulative error rate is above the
// configured maximum.
func (s *runState) exceeded() bool {
	if s.processed == 0 {
		return false
	}
	rate := float64(s.failed) / float64(s.processed) * 100
	return rate > s.opts.MaxErrorRate
}

// projectOutcome aggregates what happened to one project during a run.
type projectOutcome struct {
	deleted     int64
	archived    int64
	storage     int64
	screenshots int64
	replays     int64
}

// Processor applies a resolved policy to one project's eligible reports.
type Processor struct {
	reports  report.Repository
	archiver archive.Archiver
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProcessor creates a new batch processor.
func NewProcessor(reports report.Repository, archiver archive.Archiver, logger zerolog.Logger) *Processor {
	return &Processor{
		reports:  reports,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}
}

// applyForProject archives (when required) and soft-deletes the project's
// eligible reports in batches. Individual failures are recorded on the run
// state and processing continues; errRunAborted is returned once the
// cumulative error rate crosses the threshold.
func (p *Processor) applyForProject(ctx context.Context, run *runState, settings ProjectSettings, policy Policy) (projectOutcome, error) {
	var outcome projectOutcome

	cutoff := p.now().AddDate(0, 0, -policy.BugReportRetentionDays)

	eligible, err := p.reports.FindEligibleForDeletion(ctx, settings.ProjectID, cutoff)
	if err != nil {
		run.recordError(settings.ProjectID, "", err)
		// A failed fetch counts as one processed unit so the rate moves.
		run.processed++
		if run.exceeded() {
			return outcome, errRunAborted
		}
		return outcome, nil
	}

	p.logger.Debug().
		Str("project_id", settings.ProjectID).
		Int("eligible", len(eligible)).
		Time("cutoff", cutoff).
		Bool("archive", policy.ArchiveBeforeDelete).
		Msg("applying retention policy")

	for start := 0; start < len(eligible); start += run.opts.BatchSize {
		end := start + run.opts.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		batch := eligible[start:end]

		deletable := make([]*report.BugReport, 0, len(batch))
		for _, r := range batch {
			run.processed++

			if policy.ArchiveBeforeDelete {
				if _, archiveErr := p.archiver.ArchiveReportFiles(ctx, r.ScreenshotURL, r.ReplayURL); archiveErr != nil {
					run.recordError(settings.ProjectID, r.ID, archiveErr)
					if run.exceeded() {
						return outcome, errRunAborted
					}
					// Not archived, so not deleted either; next run retries.
					continue
				}
				outcome.archived++
			}
			deletable = append(deletable, r)

			if run.exceeded() {
				return outcome, errRunAborted
			}
		}

		if len(deletable) == 0 {
			continue
		}

		ids := make([]string, len(deletable))
		for i, r := range deletable {
			ids[i] = r.ID
		}

		affected, delErr := p.reports.SoftDelete(ctx, ids, run.opts.RequestedBy)
		if delErr != nil {
			run.recordError(settings.ProjectID, "", delErr)
			if run.exceeded() {
				return outcome, errRunAborted
			}
			continue
		}

		outcome.deleted += affected
		for _, r := range deletable {
			outcome.storage += r.StorageBytes
			if r.ScreenshotURL != nil && *r.ScreenshotURL != "" {
				outcome.screenshots++
			}
			if r.ReplayURL != nil && *r.ReplayURL != "" {
				outcome.replays++
			}
		}
	}

	return outcome, nil
}

// eligibleForProject returns the reports a run would touch, shared by the
// preview and dry-run paths so their counts always agree.
func (p *Processor) eligibleForProject(ctx context.Context, settings ProjectSettings, policy Policy) ([]*report.BugReport, error) {
	cutoff := p.now().AddDate(0, 0, -policy.BugReportRetentionDays)
	return p.reports.FindEligibleForDeletion(ctx, settings.ProjectID, cutoff)
}
