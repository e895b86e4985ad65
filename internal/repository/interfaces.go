package repository

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a pipeline id has no row.
var ErrNotFound = errors.New("pipeline not found")

// PipelineRepository defines the interface for pipeline document operations
type PipelineRepository interface {
	Create(ctx context.Context, pipeline domain.Pipeline) (domain.Pipeline, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Pipeline, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Pipeline, error)
	List(ctx context.Context) ([]domain.Pipeline, error)
	Update(ctx context.Context, pipeline domain.Pipeline) (domain.Pipeline, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
