// Package store persists personalization jobs keyed by job id. Two
// implementations exist: an in-memory table for single-process deployments
// and tests, and a PostgreSQL table so status and download reads can be
// served by a process other than the one running the job.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-personalizer/internal/types"
)

// ErrNotFound is returned by Get and Update for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Store is the job table contract. Update applies its mutator atomically:
// two concurrent updates of the same job serialize, and readers observe
// either the pre- or post-update snapshot, never a partially applied one.
type Store interface {
	Put(ctx context.Context, job *types.Job) error
	Get(ctx context.Context, id uuid.UUID) (*types.Job, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*types.Job) error) (*types.Job, error)
}
