package project

import (
	"context"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// Repository defines the interface for project persistence.
type Repository interface {
	// Get retrieves a project by ID.
	// Returns ErrProjectNotFound if the project doesn't exist.
	Get(ctx context.Context, id string) (*Project, error)

	// List retrieves all projects.
	List(ctx context.Context) ([]*Project, error)

	// Create creates a new project.
	Create(ctx context.Context, p *Project) error

	// UpdateRetention replaces the project's stored policy override.
	// A nil policy reverts the project to tier defaults.
	UpdateRetention(ctx context.Context, id string, policy *retention.Policy) error
}
