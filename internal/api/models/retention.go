package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// maxReportIDs bounds how many reports a single admin request may target.
const maxReportIDs = 100

// ApplyRetentionRequest is the request body for POST /v1/admin/retention/apply.
type ApplyRetentionRequest struct {
	DryRun       bool     `json:"dryRun"`
	BatchSize    *int     `json:"batchSize,omitempty"`
	MaxErrorRate *float64 `json:"maxErrorRate,omitempty"`
	Confirm      bool     `json:"confirm"`
}

// Validate checks the request and returns structured field errors.
func (r *ApplyRetentionRequest) Validate() []FieldError {
	var errs []FieldError
	if r.BatchSize != nil && (*r.BatchSize < 1 || *r.BatchSize > retention.MaxBatchSize) {
		errs = append(errs, FieldError{
			Field:   "batchSize",
			Message: fmt.Sprintf("must be between 1 and %d", retention.MaxBatchSize),
			Code:    "out_of_range",
		})
	}
	if r.MaxErrorRate != nil && (*r.MaxErrorRate < 0 || *r.MaxErrorRate > 100) {
		errs = append(errs, FieldError{
			Field:   "maxErrorRate",
			Message: "must be between 0 and 100",
			Code:    "out_of_range",
		})
	}
	return errs
}

// Options converts the request into engine apply options.
func (r *ApplyRetentionRequest) Options(requestedBy string) retention.ApplyOptions {
	opts := retention.ApplyOptions{
		DryRun:      r.DryRun,
		Confirm:     r.Confirm,
		RequestedBy: requestedBy,
	}
	if r.BatchSize != nil {
		opts.BatchSize = *r.BatchSize
	}
	if r.MaxErrorRate != nil {
		opts.MaxErrorRate = *r.MaxErrorRate
	}
	return opts
}

// LegalHoldRequest is the request body for POST /v1/admin/retention/legal-hold.
type LegalHoldRequest struct {
	ReportIDs []string `json:"reportIds"`
	Hold      bool     `json:"hold"`
}

// Validate checks the request and returns structured field errors.
func (r *LegalHoldRequest) Validate() []FieldError {
	return validateReportIDs(r.ReportIDs)
}

// LegalHoldResponse reports how many rows changed hold state.
type LegalHoldResponse struct {
	Updated int64 `json:"updated"`
	Hold    bool  `json:"hold"`
}

// RestoreRequest is the request body for POST /v1/admin/retention/restore.
type RestoreRequest struct {
	ReportIDs []string `json:"reportIds"`
}

// Validate checks the request and returns structured field errors.
func (r *RestoreRequest) Validate() []FieldError {
	return validateReportIDs(r.ReportIDs)
}

// RestoreResponse reports how many soft-deleted reports were restored.
type RestoreResponse struct {
	Restored int64 `json:"restored"`
}

// HardDeleteRequest is the request body for POST /v1/admin/retention/hard-delete.
// Confirm must be true; hard deletion is irreversible.
type HardDeleteRequest struct {
	ReportIDs           []string `json:"reportIds"`
	Confirm             bool     `json:"confirm"`
	GenerateCertificate *bool    `json:"generateCertificate,omitempty"`
}

// Validate checks the request and returns structured field errors.
func (r *HardDeleteRequest) Validate() []FieldError {
	errs := validateReportIDs(r.ReportIDs)
	if !r.Confirm {
		errs = append(errs, FieldError{
			Field:   "confirm",
			Message: "must be true to hard delete reports",
			Code:    "confirmation_required",
		})
	}
	return errs
}

// WantsCertificate reports whether the caller asked for a deletion
// certificate. Defaults to true when omitted.
func (r *HardDeleteRequest) WantsCertificate() bool {
	return r.GenerateCertificate == nil || *r.GenerateCertificate
}

// HardDeleteResponse carries the deletion outcome and optional certificate.
type HardDeleteResponse struct {
	Deleted     int64                          `json:"deleted"`
	Certificate *retention.DeletionCertificate `json:"certificate,omitempty"`
}

// UpdateRetentionPolicyRequest is the request body for
// PUT /v1/admin/projects/{projectId}/retention. A null policy clears the
// project's override.
type UpdateRetentionPolicyRequest struct {
	Policy *retention.Policy `json:"policy"`
}

// Validate checks the request and returns structured field errors.
func (r *UpdateRetentionPolicyRequest) Validate() []FieldError {
	if r.Policy == nil {
		return nil
	}
	if err := r.Policy.Validate(); err != nil {
		return []FieldError{{
			Field:   "policy",
			Message: err.Error(),
			Code:    "invalid_policy",
		}}
	}
	return nil
}

// UpdateRetentionPolicyResponse returns the effective stored policy.
type UpdateRetentionPolicyResponse struct {
	ProjectID string            `json:"projectId"`
	Policy    *retention.Policy `json:"policy"`
}

// validateReportIDs checks a report ID list is non-empty, bounded, and
// contains only UUIDs.
func validateReportIDs(ids []string) []FieldError {
	var errs []FieldError
	if len(ids) == 0 {
		errs = append(errs, FieldError{
			Field:   "reportIds",
			Message: "at least one report ID is required",
			Code:    "required",
		})
		return errs
	}
	if len(ids) > maxReportIDs {
		errs = append(errs, FieldError{
			Field:   "reportIds",
			Message: fmt.Sprintf("at most %d report IDs per request", maxReportIDs),
			Code:    "out_of_range",
		})
		return errs
	}
	for i, id := range ids {
		if err := uuid.Validate(id); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("reportIds[%d]", i),
				Message: "must be a valid UUID",
				Code:    "invalid_uuid",
			})
		}
	}
	return errs
}
