package pipelineloader

import (
	"context"
	"fmt"
	"time"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// PipelineLoader batches per-request pipeline lookups so the editor's
// dashboard can fetch many canvases in one round trip.
type PipelineLoader struct {
	Loader *dataloader.Loader
}

func NewPipelineLoader(repo repository.PipelineRepository) *PipelineLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid UUID: %w", err)}}
			}
			ids[i] = id
		}

		pipelines, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		pipelineMap := make(map[uuid.UUID]domain.Pipeline, len(pipelines))
		for _, p := range pipelines {
			pipelineMap[p.ID] = p
		}

		// Results must line up with the key order.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if p, ok := pipelineMap[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Error: repository.ErrNotFound}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &PipelineLoader{Loader: loader}
}

// LoadMany resolves a set of pipeline ids through the batching loader.
// Ids that do not exist are skipped rather than failing the whole
// batch.
func (l *PipelineLoader) LoadMany(ctx context.Context, ids []uuid.UUID) ([]domain.Pipeline, error) {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(id.String())
	}

	thunk := l.Loader.LoadMany(ctx, keys)
	values, errs := thunk()

	pipelines := make([]domain.Pipeline, 0, len(values))
	for i, value := range values {
		if errs != nil && i < len(errs) && errs[i] != nil {
			if errs[i] == repository.ErrNotFound {
				continue
			}
			return nil, errs[i]
		}
		if p, ok := value.(domain.Pipeline); ok {
			pipelines = append(pipelines, p)
		}
	}
	return pipelines, nil
}
