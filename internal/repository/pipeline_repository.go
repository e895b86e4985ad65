package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowgrid/flowgrid/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pipelineRepository struct {
	pool *pgxpool.Pool
}

// NewPipelineRepository returns a Postgres-backed pipeline repository.
func NewPipelineRepository(pool *pgxpool.Pool) PipelineRepository {
	return &pipelineRepository{pool: pool}
}

const pipelineColumns = "id, name, description, nodes, edges, created_at, updated_at"

func (r *pipelineRepository) Create(ctx context.Context, pipeline domain.Pipeline) (domain.Pipeline, error) {
	if pipeline.ID == uuid.Nil {
		pipeline.ID = uuid.New()
	}
	nodesJSON, err := domain.NodesToJSON(pipeline.Nodes)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := domain.EdgesToJSON(pipeline.Edges)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("marshal edges: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO pipelines (id, name, description, nodes, edges)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pipelineColumns,
		pipeline.ID,
		pipeline.Name,
		pgtype.Text{String: pipeline.Description, Valid: pipeline.Description != ""},
		nodesJSON,
		edgesJSON,
	)
	created, err := scanPipeline(row)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("create pipeline: %w", err)
	}
	return created, nil
}

func (r *pipelineRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Pipeline, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pipelineColumns+` FROM pipelines WHERE id = $1`, id)
	pipeline, err := scanPipeline(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, ErrNotFound
		}
		return domain.Pipeline{}, fmt.Errorf("get pipeline: %w", err)
	}
	return pipeline, nil
}

func (r *pipelineRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Pipeline, error) {
	if len(ids) == 0 {
		return []domain.Pipeline{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+pipelineColumns+` FROM pipelines WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get pipelines by ids: %w", err)
	}
	defer rows.Close()
	return collectPipelines(rows)
}

func (r *pipelineRepository) List(ctx context.Context) ([]domain.Pipeline, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pipelineColumns+` FROM pipelines ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()
	return collectPipelines(rows)
}

func (r *pipelineRepository) Update(ctx context.Context, pipeline domain.Pipeline) (domain.Pipeline, error) {
	nodesJSON, err := domain.NodesToJSON(pipeline.Nodes)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := domain.EdgesToJSON(pipeline.Edges)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("marshal edges: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE pipelines
		SET name = $2, description = $3, nodes = $4, edges = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+pipelineColumns,
		pipeline.ID,
		pipeline.Name,
		pgtype.Text{String: pipeline.Description, Valid: pipeline.Description != ""},
		nodesJSON,
		edgesJSON,
	)
	updated, err := scanPipeline(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, ErrNotFound
		}
		return domain.Pipeline{}, fmt.Errorf("update pipeline: %w", err)
	}
	return updated, nil
}

func (r *pipelineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPipeline(row pgx.Row) (domain.Pipeline, error) {
	var (
		pipeline    domain.Pipeline
		description pgtype.Text
		nodesJSON   []byte
		edgesJSON   []byte
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&pipeline.ID, &pipeline.Name, &description, &nodesJSON, &edgesJSON, &createdAt, &updatedAt); err != nil {
		return domain.Pipeline{}, err
	}
	pipeline.Description = description.String
	pipeline.CreatedAt = createdAt
	pipeline.UpdatedAt = updatedAt

	nodes, err := domain.NodesFromJSON(json.RawMessage(nodesJSON))
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("unmarshal nodes: %w", err)
	}
	edges, err := domain.EdgesFromJSON(json.RawMessage(edgesJSON))
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("unmarshal edges: %w", err)
	}
	pipeline.Nodes = nodes
	pipeline.Edges = edges
	return pipeline, nil
}

func collectPipelines(rows pgx.Rows) ([]domain.Pipeline, error) {
	result := make([]domain.Pipeline, 0)
	for rows.Next() {
		pipeline, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		result = append(result, pipeline)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return result, nil
}
