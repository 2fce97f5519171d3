package storage

import (
	"context"

	"github.com/ignatij/kyubey/pkg/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a direct lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the read operations kyubey performs against the orchestrator metadata.
// Begin returns a Store bound to one read-only transaction; all reads of a single
// logical operation go through it and end with Commit or Rollback.
type Store interface {
	Begin(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// System operations
	SearchSystems(ctx context.Context, searchBy string, limit, offset int64) ([]models.System, error)
	GetSystem(ctx context.Context, systemID string) (models.System, error)
	GetSystemForRun(ctx context.Context, runID string) (models.System, error)

	// DagRun operations
	GetDagRun(ctx context.Context, runID string) (models.DagRun, error)
	ListDagRunsForSystem(ctx context.Context, systemID string) ([]models.DagRun, error)

	// Task operations
	GetTask(ctx context.Context, runID, taskID string) (models.Task, error)
	ListTasksForDagRun(ctx context.Context, runID string) ([]models.Task, error)
}
