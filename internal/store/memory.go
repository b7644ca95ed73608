package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// Memory is a mutex-guarded in-process job table. All reads return deep
// copies so callers never share mutable state with the engine.
type Memory struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*types.Job
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[uuid.UUID]*types.Job)}
}

// Put stores a snapshot of the job.
func (m *Memory) Put(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a snapshot of the job or ErrNotFound.
func (m *Memory) Get(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

// Update applies mutate under the store lock. A mutator error leaves the
// stored job untouched.
func (m *Memory) Update(_ context.Context, id uuid.UUID, mutate func(*types.Job) error) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	candidate := job.Clone()
	if err := mutate(candidate); err != nil {
		return nil, err
	}
	m.jobs[id] = candidate
	return candidate.Clone(), nil
}
