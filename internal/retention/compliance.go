package retention

// Compliance tables: static, immutable lookup data assembled at build time.
// Adding a region or classification is a table edit here, never a runtime
// mutation. Lookups have no side effects and no error paths; unknown
// combinations resolve to the permissive default and callers are expected
// to log a data-quality warning.

// regionRules holds the per-region compliance flags and minimum retention
// floors by data classification.
type regionRules struct {
	minDays             map[Classification]int
	certificateRequired bool
	trueDeletionRequired bool
}

var complianceByRegion = map[Region]regionRules{
	RegionEU: {
		minDays: map[Classification]int{
			ClassGeneral:    30,
			ClassFinancial:  2555, // ~7 years
			ClassGovernment: 1825, // 5 years
			ClassHealthcare: 3650, // 10 years
			ClassPII:        30,
			ClassSensitive:  90,
		},
		certificateRequired:  true,
		trueDeletionRequired: true,
	},
	RegionUK: {
		// UK GDPR mirrors the EU floors post-withdrawal.
		minDays: map[Classification]int{
			ClassGeneral:    30,
			ClassFinancial:  2555,
			ClassGovernment: 1825,
			ClassHealthcare: 3650,
			ClassPII:        30,
			ClassSensitive:  90,
		},
		certificateRequired:  true,
		trueDeletionRequired: true,
	},
	RegionUS: {
		minDays: map[Classification]int{
			ClassFinancial:  2555, // SOX
			ClassGovernment: 1095,
			ClassHealthcare: 2190, // HIPAA, 6 years
			ClassSensitive:  30,
		},
	},
	RegionKZ: {
		minDays: map[Classification]int{
			ClassGeneral:    30,
			ClassFinancial:  1825,
			ClassGovernment: 1825,
			ClassHealthcare: 1825,
			ClassPII:        90,
			ClassSensitive:  90,
		},
		certificateRequired: true,
	},
	RegionCA: {
		minDays: map[Classification]int{
			ClassFinancial:  2190,
			ClassGovernment: 1095,
			ClassHealthcare: 3650,
			ClassPII:        30,
			ClassSensitive:  30,
		},
	},
	RegionNone: {},
}

// Limits bounds the retention range a subscription tier allows.
type Limits struct {
	// MinDays is the shortest retention a project on this tier may set.
	MinDays int

	// MaxDays is the longest retention allowed; 0 means unlimited.
	MaxDays int

	// ArchiveRequired forces archive-before-delete for the tier.
	ArchiveRequired bool
}

var limitsByTier = map[Tier]Limits{
	TierFree:         {MinDays: 7, MaxDays: 90},
	TierProfessional: {MinDays: 7, MaxDays: 365},
	TierEnterprise:   {MinDays: 7, MaxDays: 0, ArchiveRequired: true},
}

// MinRetentionDays returns the compliance floor in days for the given
// region and classification. Unknown combinations return 0.
func MinRetentionDays(region Region, class Classification) int {
	rules, ok := complianceByRegion[region]
	if !ok {
		return 0
	}
	return rules.minDays[class]
}

// CertificateRequired reports whether the region mandates a deletion
// certificate for hard deletes.
func CertificateRequired(region Region) bool {
	return complianceByRegion[region].certificateRequired
}

// TrueDeletionRequired reports whether the region mandates physical removal
// rather than soft deletion.
func TrueDeletionRequired(region Region) bool {
	return complianceByRegion[region].trueDeletionRequired
}

// TierLimits returns the retention bounds for the given tier. Unknown tiers
// get the free-tier limits, the most restrictive.
func TierLimits(tier Tier) Limits {
	limits, ok := limitsByTier[tier]
	if !ok {
		return limitsByTier[TierFree]
	}
	return limits
}

// KnownRegion reports whether the region appears in the compliance tables.
func KnownRegion(region Region) bool {
	_, ok := complianceByRegion[region]
	return ok
}
