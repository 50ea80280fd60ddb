package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexbridge-tech/bugspotter/internal/project"
	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

func seedProject(t *testing.T, repo *project.InMemoryRepository, p *project.Project) {
	t.Helper()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestService_Settings(t *testing.T) {
	repo := project.NewInMemoryRepository()
	svc := project.NewService(repo, zerolog.Nop())

	seedProject(t, repo, &project.Project{
		ID:                 "p1",
		Name:               "Acme",
		Tier:               retention.TierEnterprise,
		DataClassification: retention.ClassHealthcare,
		ComplianceRegion:   retention.RegionEU,
	})

	settings, err := svc.Settings(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if settings.ProjectName != "Acme" {
		t.Errorf("name = %q", settings.ProjectName)
	}
	if settings.MinimumRetentionDays != 3650 {
		t.Errorf("cached floor = %d, want 3650 for EU healthcare", settings.MinimumRetentionDays)
	}

	// Missing projects map to the engine's sentinel.
	if _, err := svc.Settings(context.Background(), "missing"); !errors.Is(err, retention.ErrProjectNotFound) {
		t.Errorf("expected retention.ErrProjectNotFound, got %v", err)
	}
}

func TestService_ListSettings(t *testing.T) {
	repo := project.NewInMemoryRepository()
	svc := project.NewService(repo, zerolog.Nop())

	seedProject(t, repo, &project.Project{ID: "p1", Name: "Acme", Tier: retention.TierFree, CreatedAt: time.Now().Add(-time.Hour)})
	seedProject(t, repo, &project.Project{ID: "p2", Name: "Globex", Tier: retention.TierProfessional})

	settings, err := svc.ListSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 2 {
		t.Fatalf("listed %d projects, want 2", len(settings))
	}
	// Ordered by creation time.
	if settings[0].ProjectID != "p1" || settings[1].ProjectID != "p2" {
		t.Errorf("unexpected order: %s, %s", settings[0].ProjectID, settings[1].ProjectID)
	}
}

func TestService_UpdateRetention(t *testing.T) {
	repo := project.NewInMemoryRepository()
	svc := project.NewService(repo, zerolog.Nop())

	seedProject(t, repo, &project.Project{
		ID:   "p1",
		Name: "Acme",
		Tier: retention.TierFree,
	})

	// Non-admin requests above the tier ceiling get clamped before storage.
	stored, err := svc.UpdateRetention(context.Background(), "p1", &retention.Policy{
		BugReportRetentionDays: 400,
	}, false)
	if err != nil {
		t.Fatal(err)
	}
	if stored.BugReportRetentionDays != 90 {
		t.Errorf("stored %d days, want 90 (free tier ceiling)", stored.BugReportRetentionDays)
	}

	// Admins may exceed the ceiling.
	stored, err = svc.UpdateRetention(context.Background(), "p1", &retention.Policy{
		BugReportRetentionDays: 400,
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	if stored.BugReportRetentionDays != 400 {
		t.Errorf("admin stored %d days, want 400", stored.BugReportRetentionDays)
	}

	// A nil policy clears the override.
	stored, err = svc.UpdateRetention(context.Background(), "p1", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if stored != nil {
		t.Errorf("expected cleared override, got %+v", stored)
	}

	p, err := repo.Get(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Retention != nil {
		t.Error("override should be cleared in storage")
	}
}

func TestService_UpdateRetentionInvalidPolicy(t *testing.T) {
	repo := project.NewInMemoryRepository()
	svc := project.NewService(repo, zerolog.Nop())

	seedProject(t, repo, &project.Project{ID: "p1", Tier: retention.TierFree})

	if _, err := svc.UpdateRetention(context.Background(), "p1", &retention.Policy{
		BugReportRetentionDays: -1,
	}, false); err == nil {
		t.Error("expected validation error for negative retention")
	}

	if _, err := svc.UpdateRetention(context.Background(), "missing", &retention.Policy{
		BugReportRetentionDays: 30,
	}, false); !errors.Is(err, project.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestService_UpdateRetentionEnforcesFloor(t *testing.T) {
	repo := project.NewInMemoryRepository()
	svc := project.NewService(repo, zerolog.Nop())

	seedProject(t, repo, &project.Project{
		ID:                 "p1",
		Tier:               retention.TierEnterprise,
		DataClassification: retention.ClassFinancial,
		ComplianceRegion:   retention.RegionUS,
	})

	// Even an admin cannot store a policy under the compliance floor.
	stored, err := svc.UpdateRetention(context.Background(), "p1", &retention.Policy{
		BugReportRetentionDays: 30,
	}, true)
	if err != nil {
		t.Fatal(err)
	}
	if stored.BugReportRetentionDays != 2555 {
		t.Errorf("stored %d days, want 2555 (SOX floor)", stored.BugReportRetentionDays)
	}
}
