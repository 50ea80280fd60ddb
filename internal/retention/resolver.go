package retention

import (
	"github.com/rs/zerolog"
)

// Resolver computes the effective retention policy for a project from its
// tier, its stored override, and the compliance floor for its
// classification and region.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a new policy resolver.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// DefaultPolicyForTier returns the tier's default retention policy, stamped
// with the project's compliance attributes.
func DefaultPolicyForTier(tier Tier, class Classification, region Region) Policy {
	limits := TierLimits(tier)

	days := limits.MaxDays
	if days == 0 {
		// Unlimited tiers default to a year; the stored override raises it.
		days = 365
	}

	return Policy{
		BugReportRetentionDays:  days,
		ScreenshotRetentionDays: days,
		ReplayRetentionDays:     days,
		AttachmentRetentionDays: days,
		ArchivedRetentionDays:   days * 2,
		ArchiveBeforeDelete:     limits.ArchiveRequired,
		DataClassification:      class,
		ComplianceRegion:        region,
	}
}

// Resolve computes the effective policy for the given project settings.
//
// The stored override is used when present and valid, else the tier
// default. The compliance floor is always enforced, regardless of role.
// Non-admin callers are additionally clamped into the tier's range; admins
// may exceed the tier ceiling but never undercut the floor.
//
// Resolve never fails: malformed stored settings fall back to tier defaults
// with a warning, so one bad row cannot block a batch run.
func (r *Resolver) Resolve(settings ProjectSettings, isAdmin bool) Policy {
	var policy Policy

	switch {
	case settings.Retention == nil:
		policy = DefaultPolicyForTier(settings.Tier, settings.DataClassification, settings.ComplianceRegion)
	case settings.Retention.Validate() != nil:
		r.logger.Warn().
			Str("project_id", settings.ProjectID).
			Str("tier", string(settings.Tier)).
			AnErr("reason", settings.Retention.Validate()).
			Msg("stored retention policy invalid, falling back to tier default")
		policy = DefaultPolicyForTier(settings.Tier, settings.DataClassification, settings.ComplianceRegion)
	default:
		policy = *settings.Retention
		// Project-level compliance attributes win over whatever was stored.
		policy.DataClassification = settings.DataClassification
		policy.ComplianceRegion = settings.ComplianceRegion
	}

	if !KnownRegion(policy.ComplianceRegion) {
		r.logger.Warn().
			Str("project_id", settings.ProjectID).
			Str("region", string(policy.ComplianceRegion)).
			Msg("unknown compliance region, applying zero-day floor")
	}

	floor := MinRetentionDays(policy.ComplianceRegion, policy.DataClassification)
	if policy.BugReportRetentionDays < floor {
		r.logger.Debug().
			Str("project_id", settings.ProjectID).
			Int("requested_days", policy.BugReportRetentionDays).
			Int("floor_days", floor).
			Msg("raising retention to compliance floor")
		policy.BugReportRetentionDays = floor
	}

	if !isAdmin {
		limits := TierLimits(settings.Tier)
		if policy.BugReportRetentionDays < limits.MinDays {
			policy.BugReportRetentionDays = limits.MinDays
		}
		if limits.MaxDays > 0 && policy.BugReportRetentionDays > limits.MaxDays {
			// The floor still wins over the tier ceiling.
			if floor > limits.MaxDays {
				policy.BugReportRetentionDays = floor
			} else {
				policy.BugReportRetentionDays = limits.MaxDays
			}
		}
		if limits.ArchiveRequired {
			policy.ArchiveBeforeDelete = true
		}
	}

	return policy
}

// MinimumRetentionDays returns the compliance floor for the settings,
// used to populate the cached field on project settings.
func (r *Resolver) MinimumRetentionDays(settings ProjectSettings) int {
	return MinRetentionDays(settings.ComplianceRegion, settings.DataClassification)
}
