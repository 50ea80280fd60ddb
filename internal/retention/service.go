package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/archive"
	"github.com/apexbridge-tech/bugspotter/internal/report"
)

// ProjectStore is the engine's view of project settings, provided by the
// project collaborator.
type ProjectStore interface {
	// ListSettings returns retention settings for every project.
	ListSettings(ctx context.Context) ([]ProjectSettings, error)

	// Settings returns retention settings for one project.
	// Returns ErrProjectNotFound if the project doesn't exist.
	Settings(ctx context.Context, projectID string) (ProjectSettings, error)
}

// Service is the public façade of the retention engine: preview, apply,
// legal-hold toggling, restore, and hard delete with certificate.
type Service struct {
	reports   report.Repository
	projects  ProjectStore
	resolver  *Resolver
	processor *Processor
	certs     *Generator
	logger    zerolog.Logger
	threshold int
	now       func() time.Time
}

// ServiceConfig holds configuration for creating a retention Service.
type ServiceConfig struct {
	Reports  report.Repository
	Projects ProjectStore
	Archiver archive.Archiver
	Logger   zerolog.Logger

	// ManualDeletionThreshold is the preview size above which a non-dry-run
	// apply requires Confirm. Default 1000.
	ManualDeletionThreshold int
}

// NewService creates a new retention service.
func NewService(cfg ServiceConfig) *Service {
	threshold := cfg.ManualDeletionThreshold
	if threshold <= 0 {
		threshold = DefaultManualDeletionThreshold
	}

	return &Service{
		reports:   cfg.Reports,
		projects:  cfg.Projects,
		resolver:  NewResolver(cfg.Logger),
		processor: NewProcessor(cfg.Reports, cfg.Archiver, cfg.Logger),
		certs:     NewGenerator(),
		logger:    cfg.Logger,
		threshold: threshold,
		now:       time.Now,
	}
}

// Preview computes what a retention run would delete, without mutating
// anything. With a nil projectID it covers every project.
func (s *Service) Preview(ctx context.Context, projectID *string) (*Preview, error) {
	settings, err := s.targetProjects(ctx, projectID)
	if err != nil {
		return nil, err
	}

	preview := &Preview{}
	for _, ps := range settings {
		policy := s.resolver.Resolve(ps, false)

		eligible, err := s.processor.eligibleForProject(ctx, ps, policy)
		if err != nil {
			return nil, fmt.Errorf("previewing project %s: %w", ps.ProjectID, err)
		}
		if len(eligible) == 0 {
			continue
		}

		pp := ProjectPreview{
			ProjectID:       ps.ProjectID,
			ProjectName:     ps.ProjectName,
			ReportsToDelete: len(eligible),
		}
		for _, r := range eligible {
			pp.EstimatedStorageFreed += r.StorageBytes
		}
		oldest := eligible[0].CreatedAt
		pp.OldestReportDate = &oldest

		preview.AffectedProjects = append(preview.AffectedProjects, pp)
		preview.TotalReports += pp.ReportsToDelete
		preview.TotalStorageBytes += pp.EstimatedStorageFreed
	}

	holds, err := s.reports.CountLegalHold(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting legal holds: %w", err)
	}
	preview.LegalHoldCount = holds

	return preview, nil
}

// Apply runs the retention policy over every project. Projects are
// processed sequentially; a cumulative error rate above
// opts.MaxErrorRate aborts the run and the partial result is returned with
// Aborted set. Dry runs perform the same eligibility computation with zero
// writes, so their counts match Preview exactly.
func (s *Service) Apply(ctx context.Context, opts ApplyOptions) (*Result, error) {
	opts = opts.withDefaults()

	result := &Result{StartedAt: s.now().UTC()}
	defer func() {
		result.CompletedAt = s.now().UTC()
		result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
	}()

	settings, err := s.projects.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	if !opts.DryRun {
		preview, err := s.Preview(ctx, nil)
		if err != nil {
			return nil, err
		}
		if preview.TotalReports > s.threshold && !opts.Confirm {
			return nil, fmt.Errorf("%w: %d reports exceed threshold of %d",
				ErrConfirmationRequired, preview.TotalReports, s.threshold)
		}
	}

	run := &runState{opts: opts}

	for i, ps := range settings {
		policy := s.resolver.Resolve(ps, false)

		if opts.DryRun {
			eligible, err := s.processor.eligibleForProject(ctx, ps, policy)
			if err != nil {
				run.recordError(ps.ProjectID, "", err)
				continue
			}
			result.TotalDeleted += int64(len(eligible))
			for _, r := range eligible {
				result.StorageFreed += r.StorageBytes
				if policy.ArchiveBeforeDelete {
					result.TotalArchived++
				}
				if r.ScreenshotURL != nil && *r.ScreenshotURL != "" {
					result.ScreenshotsDeleted++
				}
				if r.ReplayURL != nil && *r.ReplayURL != "" {
					result.ReplaysDeleted++
				}
			}
			result.ProjectsProcessed++
			continue
		}

		outcome, applyErr := s.processor.applyForProject(ctx, run, ps, policy)
		result.TotalDeleted += outcome.deleted
		result.TotalArchived += outcome.archived
		result.StorageFreed += outcome.storage
		result.ScreenshotsDeleted += outcome.screenshots
		result.ReplaysDeleted += outcome.replays
		result.ProjectsProcessed++

		if applyErr != nil {
			// Circuit breaker tripped: stop here and record the projects
			// the run never reached.
			result.Aborted = true
			for _, skipped := range settings[i+1:] {
				run.errors = append(run.errors, RunError{
					ProjectID: skipped.ProjectID,
					Error:     "skipped: run aborted after error rate exceeded threshold",
					Timestamp: s.now().UTC(),
				})
			}
			s.logger.Error().
				Int("projects_processed", result.ProjectsProcessed).
				Int("projects_skipped", len(settings)-i-1).
				Float64("max_error_rate", opts.MaxErrorRate).
				Msg("retention run aborted by error-rate circuit breaker")
			break
		}

		if opts.Delay > 0 && i < len(settings)-1 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	result.Errors = run.errors

	s.logger.Info().
		Bool("dry_run", opts.DryRun).
		Int64("deleted", result.TotalDeleted).
		Int64("archived", result.TotalArchived).
		Int64("storage_freed", result.StorageFreed).
		Int("projects", result.ProjectsProcessed).
		Int("errors", len(result.Errors)).
		Bool("aborted", result.Aborted).
		Msg("retention run finished")

	return result, nil
}

// SetLegalHold sets or clears the legal hold flag on the given reports.
// Idempotent: rows already in the requested state are not counted.
func (s *Service) SetLegalHold(ctx context.Context, reportIDs []string, hold bool, userID string) (int64, error) {
	affected, err := s.reports.SetLegalHold(ctx, reportIDs, hold)
	if err != nil {
		return 0, fmt.Errorf("setting legal hold: %w", err)
	}

	s.logger.Info().
		Bool("hold", hold).
		Str("user_id", userID).
		Int("requested", len(reportIDs)).
		Int64("changed", affected).
		Msg("legal hold updated")

	return affected, nil
}

// RestoreReports clears the deletion mark on soft-deleted reports. Active
// and hard-deleted rows are unaffected.
func (s *Service) RestoreReports(ctx context.Context, reportIDs []string) (int64, error) {
	affected, err := s.reports.Restore(ctx, reportIDs)
	if err != nil {
		return 0, fmt.Errorf("restoring reports: %w", err)
	}

	s.logger.Info().
		Int("requested", len(reportIDs)).
		Int64("restored", affected).
		Msg("reports restored")

	return affected, nil
}

// HardDeleteReports permanently removes the given reports inside the
// supplied transaction. All reports must belong to a single project: the
// certificate requirement is a per-project property, so a mixed set is
// rejected with ErrMixedProjects before anything is deleted. Reports on
// legal hold are silently excluded from both the delete set and the
// certificate. A certificate is returned when the project's region
// requires one or the caller asked for one; otherwise nil.
func (s *Service) HardDeleteReports(ctx context.Context, tx report.Tx, reportIDs []string, userID string, generateCertificate bool) (*DeletionCertificate, int64, error) {
	if tx == nil {
		return nil, 0, ErrTransactionRequired
	}

	reports, err := s.reports.FindByIDs(ctx, reportIDs)
	if err != nil {
		return nil, 0, fmt.Errorf("loading reports: %w", err)
	}
	if len(reports) == 0 {
		return nil, 0, nil
	}

	projectID := reports[0].ProjectID
	deletable := make([]string, 0, len(reports))
	for _, r := range reports {
		if r.ProjectID != projectID {
			return nil, 0, fmt.Errorf("%w: %s and %s", ErrMixedProjects, projectID, r.ProjectID)
		}
		if r.LegalHold {
			continue
		}
		deletable = append(deletable, r.ID)
	}
	if len(deletable) == 0 {
		s.logger.Warn().
			Int("requested", len(reportIDs)).
			Msg("hard delete skipped: all requested reports on legal hold")
		return nil, 0, nil
	}

	settings, err := s.projects.Settings(ctx, projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("loading project %s: %w", projectID, err)
	}

	affected, err := s.reports.HardDelete(ctx, tx, deletable)
	if err != nil {
		return nil, 0, fmt.Errorf("hard deleting reports: %w", err)
	}

	s.logger.Info().
		Str("project_id", projectID).
		Str("user_id", userID).
		Int("requested", len(reportIDs)).
		Int64("deleted", affected).
		Msg("reports hard deleted")

	if !generateCertificate && !CertificateRequired(settings.ComplianceRegion) {
		return nil, affected, nil
	}

	cert := s.certs.Issue(
		projectID,
		deletable,
		userID,
		"retention policy hard delete",
		settings.DataClassification,
		settings.ComplianceRegion,
	)
	return &cert, affected, nil
}

// targetProjects resolves the project set a preview covers.
func (s *Service) targetProjects(ctx context.Context, projectID *string) ([]ProjectSettings, error) {
	if projectID == nil {
		return s.projects.ListSettings(ctx)
	}
	settings, err := s.projects.Settings(ctx, *projectID)
	if err != nil {
		return nil, err
	}
	return []ProjectSettings{settings}, nil
}
