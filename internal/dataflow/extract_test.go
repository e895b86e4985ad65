package dataflow

import (
	"testing"

	"github.com/flowgrid/flowgrid/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestExtractRows_SingleRecordSource(t *testing.T) {
	node := domain.Node{
		ID:   "s1",
		Kind: domain.NodeKindSource,
		Source: &domain.SourceConfig{
			Label:       "Orders DB",
			Category:    "database",
			Status:      "active",
			Description: "primary order store",
			Count:       floatPtr(100),
			Timestamp:   "2026-02-01T00:00:00Z",
		},
	}

	rows := ExtractRows(node)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.ID != "s1" || row.NodeID != "s1" || row.NodeLabel != "Orders DB" {
		t.Fatalf("unexpected row metadata: %+v", row)
	}
	if row.Fields["label"] != "Orders DB" {
		t.Errorf("expected label field, got %v", row.Fields["label"])
	}
	if row.Fields["category"] != "database" {
		t.Errorf("expected category field, got %v", row.Fields["category"])
	}
	if row.Fields["count"] != float64(100) {
		t.Errorf("expected count 100, got %v", row.Fields["count"])
	}
	if row.Fields["timestamp"] != "2026-02-01T00:00:00Z" {
		t.Errorf("expected timestamp field, got %v", row.Fields["timestamp"])
	}
}

func TestExtractRows_OmitsUnsetOptionalFields(t *testing.T) {
	node := domain.Node{
		ID:     "s1",
		Kind:   domain.NodeKindSource,
		Source: &domain.SourceConfig{Label: "Minimal"},
	}

	rows := ExtractRows(node)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if len(rows[0].Fields) != 1 {
		t.Fatalf("expected only the label field, got %v", rows[0].Fields)
	}
}

func TestExtractRows_BatchSource(t *testing.T) {
	node := domain.Node{
		ID:   "metrics",
		Kind: domain.NodeKindSource,
		Source: &domain.SourceConfig{
			Label: "Daily Metrics",
			Records: []map[string]any{
				{"date": "2026-02-01", "clicks": 42},
				{"date": "2026-02-02", "clicks": 57},
			},
		},
	}

	rows := ExtractRows(node)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "metrics-0" || rows[1].ID != "metrics-1" {
		t.Errorf("unexpected row ids: %s, %s", rows[0].ID, rows[1].ID)
	}
	for _, row := range rows {
		if row.NodeID != "metrics" || row.NodeLabel != "Daily Metrics" {
			t.Errorf("unexpected provenance: %+v", row)
		}
	}
	if rows[1].Fields["clicks"] != 57 {
		t.Errorf("expected record value passed through, got %v", rows[1].Fields["clicks"])
	}
}

func TestExtractRows_EmptyBatchSource(t *testing.T) {
	node := domain.Node{
		ID:   "metrics",
		Kind: domain.NodeKindSource,
		Source: &domain.SourceConfig{
			Label:   "Daily Metrics",
			Records: []map[string]any{},
		},
	}
	if rows := ExtractRows(node); len(rows) != 0 {
		t.Fatalf("expected no rows for an empty batch, got %d", len(rows))
	}
}

func TestExtractRows_NonSourceKindsProduceNothing(t *testing.T) {
	nodes := []domain.Node{
		{ID: "f1", Kind: domain.NodeKindFilter, Filter: &domain.FilterConfig{Label: "f"}},
		{ID: "j1", Kind: domain.NodeKindJoin, Join: &domain.JoinConfig{Label: "j"}},
		{ID: "t1", Kind: domain.NodeKindSink, Sink: &domain.SinkConfig{Label: "t"}},
	}
	for _, node := range nodes {
		if rows := ExtractRows(node); rows != nil {
			t.Errorf("node %s: expected nil rows, got %v", node.ID, rows)
		}
	}
}

func TestExtractRows_DoesNotAliasRecordMaps(t *testing.T) {
	record := map[string]any{"sku": "X"}
	node := domain.Node{
		ID:     "b1",
		Kind:   domain.NodeKindSource,
		Source: &domain.SourceConfig{Label: "Batch", Records: []map[string]any{record}},
	}

	rows := ExtractRows(node)
	rows[0].Fields["sku"] = "mutated"
	if record["sku"] != "X" {
		t.Fatal("extracted row shares the node's record map")
	}
}
