package ingestion

import (
	"context"
	"testing"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/repository"

	"github.com/google/uuid"
)

type fakePipelineRepository struct {
	pipelines map[uuid.UUID]domain.Pipeline
	updated   *domain.Pipeline
}

func newFakePipelineRepository(pipelines ...domain.Pipeline) *fakePipelineRepository {
	repo := &fakePipelineRepository{pipelines: make(map[uuid.UUID]domain.Pipeline)}
	for _, p := range pipelines {
		repo.pipelines[p.ID] = p
	}
	return repo
}

func (f *fakePipelineRepository) Create(_ context.Context, p domain.Pipeline) (domain.Pipeline, error) {
	f.pipelines[p.ID] = p
	return p, nil
}

func (f *fakePipelineRepository) GetByID(_ context.Context, id uuid.UUID) (domain.Pipeline, error) {
	p, ok := f.pipelines[id]
	if !ok {
		return domain.Pipeline{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePipelineRepository) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Pipeline, error) {
	var result []domain.Pipeline
	for _, id := range ids {
		if p, ok := f.pipelines[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (f *fakePipelineRepository) List(_ context.Context) ([]domain.Pipeline, error) {
	var result []domain.Pipeline
	for _, p := range f.pipelines {
		result = append(result, p)
	}
	return result, nil
}

func (f *fakePipelineRepository) Update(_ context.Context, p domain.Pipeline) (domain.Pipeline, error) {
	if _, ok := f.pipelines[p.ID]; !ok {
		return domain.Pipeline{}, repository.ErrNotFound
	}
	f.pipelines[p.ID] = p
	f.updated = &p
	return p, nil
}

func (f *fakePipelineRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.pipelines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.pipelines, id)
	return nil
}

func sourcePipeline() domain.Pipeline {
	return domain.Pipeline{
		ID:   uuid.New(),
		Name: "test",
		Nodes: []domain.Node{
			{ID: "s1", Kind: domain.NodeKindSource, Source: &domain.SourceConfig{Label: "Metrics"}},
			{ID: "t1", Kind: domain.NodeKindSink, Sink: &domain.SinkConfig{Label: "Table"}},
		},
	}
}

func TestIngestRecords_CSV(t *testing.T) {
	pipeline := sourcePipeline()
	repo := newFakePipelineRepository(pipeline)
	service := NewService(repo)

	payload := []byte("date,clicks,active\n2026-02-01,42,true\n2026-02-02,57,false\n")
	summary, err := service.IngestRecords(context.Background(), pipeline.ID, "s1", "metrics.csv", payload)
	if err != nil {
		t.Fatalf("IngestRecords: %v", err)
	}
	if summary.RecordCount != 2 {
		t.Fatalf("recordCount = %d, want 2", summary.RecordCount)
	}
	if len(summary.Fields) != 3 || summary.Fields[0] != "date" {
		t.Errorf("unexpected fields: %v", summary.Fields)
	}

	if repo.updated == nil {
		t.Fatal("pipeline was not persisted")
	}
	records := repo.updated.Nodes[0].Source.Records
	if len(records) != 2 {
		t.Fatalf("expected 2 records on the node, got %d", len(records))
	}
	if records[0]["clicks"] != int64(42) {
		t.Errorf("numeric cell not coerced: %v (%T)", records[0]["clicks"], records[0]["clicks"])
	}
	if records[1]["active"] != false {
		t.Errorf("boolean cell not coerced: %v", records[1]["active"])
	}
}

func TestIngestRecords_SkipsEmptyRowsAndCells(t *testing.T) {
	pipeline := sourcePipeline()
	repo := newFakePipelineRepository(pipeline)
	service := NewService(repo)

	payload := []byte("sku,qty\n\nX,\nY,5\n")
	summary, err := service.IngestRecords(context.Background(), pipeline.ID, "s1", "stock.csv", payload)
	if err != nil {
		t.Fatalf("IngestRecords: %v", err)
	}
	if summary.RecordCount != 2 {
		t.Fatalf("recordCount = %d, want 2", summary.RecordCount)
	}
	records := repo.updated.Nodes[0].Source.Records
	if _, ok := records[0]["qty"]; ok {
		t.Error("empty cell must be omitted, not recorded")
	}
	if records[1]["qty"] != int64(5) {
		t.Errorf("qty = %v, want 5", records[1]["qty"])
	}
}

func TestIngestRecords_RejectsNonSourceNode(t *testing.T) {
	pipeline := sourcePipeline()
	repo := newFakePipelineRepository(pipeline)
	service := NewService(repo)

	_, err := service.IngestRecords(context.Background(), pipeline.ID, "t1", "x.csv", []byte("a\n1\n"))
	if err == nil {
		t.Fatal("ingesting into a sink node must fail")
	}
}

func TestIngestRecords_RejectsUnknownExtension(t *testing.T) {
	pipeline := sourcePipeline()
	repo := newFakePipelineRepository(pipeline)
	service := NewService(repo)

	_, err := service.IngestRecords(context.Background(), pipeline.ID, "s1", "x.parquet", []byte{})
	if err == nil {
		t.Fatal("unsupported extensions must be rejected")
	}
}

func TestSanitizeHeaders(t *testing.T) {
	headers := sanitizeHeaders([]string{" Unit Price ", "sku.id", "", "sku.id"})
	want := []string{"Unit_Price", "sku_id", "column_3", "sku_id_2"}
	for i := range want {
		if headers[i] != want[i] {
			t.Errorf("header %d = %q, want %q", i, headers[i], want[i])
		}
	}
}
