package project

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/apexbridge-tech/bugspotter/internal/retention"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewInMemoryRepository creates a new in-memory project repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		projects: make(map[string]*Project),
	}
}

// Get retrieves a project by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}

	cpy := *p
	return &cpy, nil
}

// List retrieves all projects, ordered by creation time.
func (r *InMemoryRepository) List(_ context.Context) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var projects []*Project
	for _, p := range r.projects {
		cpy := *p
		projects = append(projects, &cpy)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// Create creates a new project.
func (r *InMemoryRepository) Create(_ context.Context, p *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *p
	r.projects[p.ID] = &cpy
	return nil
}

// UpdateRetention replaces the project's stored policy override.
func (r *InMemoryRepository) UpdateRetention(_ context.Context, id string, policy *retention.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return ErrProjectNotFound
	}

	if policy != nil {
		cpy := *policy
		p.Retention = &cpy
	} else {
		p.Retention = nil
	}
	p.UpdatedAt = time.Now()
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
