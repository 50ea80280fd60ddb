// Package project provides project settings management for the retention
// engine: tier, compliance attributes, and stored policy overrides.
package project

import (
	"errors"
	"time"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// Repository errors.
var (
	ErrProjectNotFound = errors.New("project not found")
)

// Project represents a customer project that collects bug reports.
type Project struct {
	ID                 string
	Name               string
	Tier               retention.Tier
	DataClassification retention.Classification
	ComplianceRegion   retention.Region

	// Retention is the stored policy override, nil when the project uses
	// tier defaults.
	Retention *retention.Policy

	CreatedAt time.Time
	UpdatedAt time.Time
}
