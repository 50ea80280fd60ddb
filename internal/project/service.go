package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// Service provides project settings operations and adapts projects into
// the retention engine's settings view.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListSettings returns retention settings for every project.
func (s *Service) ListSettings(ctx context.Context) ([]retention.ProjectSettings, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	settings := make([]retention.ProjectSettings, 0, len(projects))
	for _, p := range projects {
		settings = append(settings, toSettings(p))
	}
	return settings, nil
}

// Settings returns retention settings for one project.
func (s *Service) Settings(ctx context.Context, projectID string) (retention.ProjectSettings, error) {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return retention.ProjectSettings{}, retention.ErrProjectNotFound
		}
		return retention.ProjectSettings{}, err
	}
	return toSettings(p), nil
}

// UpdateRetention validates and stores a policy override for a project.
// The requested retention days are checked against the compliance floor
// and, for non-admin callers, clamped into the tier's allowed range.
func (s *Service) UpdateRetention(ctx context.Context, projectID string, policy *retention.Policy, isAdmin bool) (*retention.Policy, error) {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if policy == nil {
		if err := s.repo.UpdateRetention(ctx, projectID, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	resolver := retention.NewResolver(s.logger)
	effective := resolver.Resolve(retention.ProjectSettings{
		ProjectID:          p.ID,
		ProjectName:        p.Name,
		Tier:               p.Tier,
		DataClassification: p.DataClassification,
		ComplianceRegion:   p.ComplianceRegion,
		Retention:          policy,
	}, isAdmin)

	if err := s.repo.UpdateRetention(ctx, projectID, &effective); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("project_id", projectID).
		Int("retention_days", effective.BugReportRetentionDays).
		Bool("admin", isAdmin).
		Msg("project retention policy updated")

	return &effective, nil
}

// toSettings maps a project to the retention engine's settings view.
func toSettings(p *Project) retention.ProjectSettings {
	return retention.ProjectSettings{
		ProjectID:            p.ID,
		ProjectName:          p.Name,
		Tier:                 p.Tier,
		DataClassification:   p.DataClassification,
		ComplianceRegion:     p.ComplianceRegion,
		Retention:            p.Retention,
		MinimumRetentionDays: retention.MinRetentionDays(p.ComplianceRegion, p.DataClassification),
	}
}

// Ensure Service implements the retention engine's project store.
var _ retention.ProjectStore = (*Service)(nil)
