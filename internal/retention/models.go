// Package retention implements the retention and lifecycle policy engine:
// compliance floors, effective-policy resolution, batch apply with a
// run-level circuit breaker, deletion certificates, and the cron scheduler.
package retention

import (
	"errors"
	"fmt"
	"time"
)

// Service errors.
var (
	ErrTransactionRequired  = errors.New("hard delete requires a transactional handle")
	ErrConfirmationRequired = errors.New("bulk deletion above threshold requires confirmation")
	ErrProjectNotFound      = errors.New("project not found")
	ErrMixedProjects        = errors.New("hard delete spans multiple projects")
)

// Tier is a subscription level bounding allowed retention ranges.
type Tier string

// Subscription tiers.
const (
	TierFree         Tier = "free"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// Classification is the sensitivity category of stored data.
type Classification string

// Data classifications.
const (
	ClassGeneral    Classification = "general"
	ClassFinancial  Classification = "financial"
	ClassGovernment Classification = "government"
	ClassHealthcare Classification = "healthcare"
	ClassPII        Classification = "pii"
	ClassSensitive  Classification = "sensitive"
)

// Region is the regulatory jurisdiction applied to a project.
type Region string

// Compliance regions.
const (
	RegionNone Region = "none"
	RegionEU   Region = "eu"
	RegionUS   Region = "us"
	RegionKZ   Region = "kz"
	RegionUK   Region = "uk"
	RegionCA   Region = "ca"
)

// Policy is a retention policy, either stored per project or resolved from
// tier defaults and compliance floors.
type Policy struct {
	BugReportRetentionDays  int            `json:"bugReportRetentionDays"`
	ScreenshotRetentionDays int            `json:"screenshotRetentionDays"`
	ReplayRetentionDays     int            `json:"replayRetentionDays"`
	AttachmentRetentionDays int            `json:"attachmentRetentionDays"`
	ArchivedRetentionDays   int            `json:"archivedRetentionDays"`
	ArchiveBeforeDelete     bool           `json:"archiveBeforeDelete"`
	DataClassification      Classification `json:"dataClassification"`
	ComplianceRegion        Region         `json:"complianceRegion"`
}

// Validate checks that a stored policy is well-formed. The resolver falls
// back to tier defaults when this fails; it never aborts a run.
func (p *Policy) Validate() error {
	if p == nil {
		return errors.New("policy is nil")
	}
	for name, days := range map[string]int{
		"bugReportRetentionDays":  p.BugReportRetentionDays,
		"screenshotRetentionDays": p.ScreenshotRetentionDays,
		"replayRetentionDays":     p.ReplayRetentionDays,
		"attachmentRetentionDays": p.AttachmentRetentionDays,
		"archivedRetentionDays":   p.ArchivedRetentionDays,
	} {
		if days < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if p.BugReportRetentionDays == 0 {
		return errors.New("bugReportRetentionDays is required")
	}
	switch p.DataClassification {
	case ClassGeneral, ClassFinancial, ClassGovernment, ClassHealthcare, ClassPII, ClassSensitive, "":
	default:
		return fmt.Errorf("unknown data classification %q", p.DataClassification)
	}
	switch p.ComplianceRegion {
	case RegionNone, RegionEU, RegionUS, RegionKZ, RegionUK, RegionCA, "":
	default:
		return fmt.Errorf("unknown compliance region %q", p.ComplianceRegion)
	}
	return nil
}

// ProjectSettings is the retention engine's view of a project: its tier,
// compliance attributes, and stored policy override, if any.
type ProjectSettings struct {
	ProjectID          string
	ProjectName        string
	Tier               Tier
	DataClassification Classification
	ComplianceRegion   Region

	// Retention is the stored policy override, nil when the project uses
	// tier defaults.
	Retention *Policy

	// MinimumRetentionDays is the cached compliance floor for the project's
	// region and classification.
	MinimumRetentionDays int
}

// RunError records a single failure during a retention run.
type RunError struct {
	ProjectID   string    `json:"projectId"`
	BugReportID string    `json:"bugReportId,omitempty"`
	Error       string    `json:"error"`
	Timestamp   time.Time `json:"timestamp"`
}

// Result aggregates the outcome of a retention run.
type Result struct {
	TotalDeleted       int64      `json:"totalDeleted"`
	TotalArchived      int64      `json:"totalArchived"`
	StorageFreed       int64      `json:"storageFreed"`
	ScreenshotsDeleted int64      `json:"screenshotsDeleted"`
	ReplaysDeleted     int64      `json:"replaysDeleted"`
	ProjectsProcessed  int        `json:"projectsProcessed"`
	Errors             []RunError `json:"errors"`
	DurationMs         int64      `json:"durationMs"`
	StartedAt          time.Time  `json:"startedAt"`
	CompletedAt        time.Time  `json:"completedAt"`

	// Aborted is true when the run was stopped by the error-rate circuit
	// breaker before all candidate projects were processed.
	Aborted bool `json:"aborted,omitempty"`
}

// ProjectPreview summarizes what a retention run would do to one project.
type ProjectPreview struct {
	ProjectID             string     `json:"projectId"`
	ProjectName           string     `json:"projectName"`
	ReportsToDelete       int        `json:"reportsToDelete"`
	EstimatedStorageFreed int64      `json:"estimatedStorageFreed"`
	OldestReportDate      *time.Time `json:"oldestReportDate,omitempty"`
}

// Preview is the read-only projection of a retention run.
type Preview struct {
	AffectedProjects  []ProjectPreview `json:"affectedProjects"`
	TotalReports      int              `json:"totalReports"`
	TotalStorageBytes int64            `json:"totalStorageBytes"`
	LegalHoldCount    int64            `json:"legalHoldCount"`
}

// DeletionCertificate is a verifiable record of a compliant hard deletion.
type DeletionCertificate struct {
	CertificateID      string         `json:"certificateId"`
	ProjectID          string         `json:"projectId"`
	ReportIDs          []string       `json:"reportIds"`
	DeletedAt          time.Time      `json:"deletedAt"`
	DeletedBy          string         `json:"deletedBy"`
	Reason             string         `json:"reason"`
	DataClassification Classification `json:"dataClassification"`
	ComplianceRegion   Region         `json:"complianceRegion"`
	VerificationHash   string         `json:"verificationHash"`
	IssuedAt           time.Time      `json:"issuedAt"`
}

// Apply option defaults and bounds.
const (
	DefaultBatchSize    = 100
	MaxBatchSize        = 1000
	DefaultMaxErrorRate = 5.0

	// DefaultManualDeletionThreshold is the preview size above which a
	// non-dry-run apply requires explicit confirmation.
	DefaultManualDeletionThreshold = 1000
)

// ApplyOptions controls a retention run.
type ApplyOptions struct {
	// DryRun computes the run's effects without mutating anything.
	DryRun bool

	// BatchSize bounds soft-delete batches. Default 100, max 1000.
	BatchSize int

	// MaxErrorRate is the cumulative error percentage (0-100) above which
	// the whole run aborts. Default 5.
	MaxErrorRate float64

	// Delay is an optional throttle between projects.
	Delay time.Duration

	// Confirm acknowledges a run whose preview exceeds the manual deletion
	// threshold.
	Confirm bool

	// RequestedBy is recorded as deleted_by on soft-deleted rows.
	RequestedBy string
}

// withDefaults fills in unset options.
func (o ApplyOptions) withDefaults() ApplyOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	if o.MaxErrorRate <= 0 {
		o.MaxErrorRate = DefaultMaxErrorRate
	}
	if o.RequestedBy == "" {
		o.RequestedBy = "retention-engine"
	}
	return o
}
