package dataflow

import (
	"testing"

	"github.com/flowgrid/flowgrid/internal/domain"
)

func TestProject_SelectsAndRenames(t *testing.T) {
	rows := []domain.Row{{
		ID:        "s1",
		NodeID:    "s1",
		NodeLabel: "DB",
		Fields:    map[string]any{"label": "DB", "records": 100},
	}}

	projected := Project(rows, []string{"records"}, map[string]string{"records": "count"})
	if len(projected) != 1 {
		t.Fatalf("expected 1 row, got %d", len(projected))
	}
	row := projected[0]
	if row.ID != "s1" || row.NodeID != "s1" || row.NodeLabel != "DB" {
		t.Fatalf("metadata must be preserved: %+v", row)
	}
	if row.Fields["count"] != 100 {
		t.Errorf("expected renamed field count=100, got %v", row.Fields["count"])
	}
	if _, ok := row.Fields["records"]; ok {
		t.Error("original field name must not survive a rename")
	}
	if _, ok := row.Fields["label"]; ok {
		t.Error("unselected field must be dropped")
	}
}

func TestProject_SubsetLaw(t *testing.T) {
	rows := []domain.Row{
		{ID: "r0", Fields: map[string]any{"a": 1, "b": 2, "c": 3}},
		{ID: "r1", Fields: map[string]any{"a": 4}},
		{ID: "r2", Fields: map[string]any{"b": 5, "d": 6}},
	}
	selected := []string{"a", "b"}

	projected := Project(rows, selected, nil)
	if len(projected) != len(rows) {
		t.Fatalf("projection must preserve row count, got %d", len(projected))
	}
	for i, row := range projected {
		for name := range row.Fields {
			if !contains(selected, name) {
				t.Errorf("row %d carries unselected field %q", i, name)
			}
			if _, ok := rows[i].Fields[name]; !ok {
				t.Errorf("row %d fabricated field %q", i, name)
			}
		}
	}
	if _, ok := projected[1].Fields["b"]; ok {
		t.Error("absent field must be omitted, not padded")
	}
}

func TestProject_EmptySelection(t *testing.T) {
	rows := []domain.Row{{ID: "r0", Fields: map[string]any{"a": 1}}}
	projected := Project(rows, nil, nil)
	if len(projected) != 1 {
		t.Fatalf("expected 1 row, got %d", len(projected))
	}
	if len(projected[0].Fields) != 0 {
		t.Fatalf("expected empty field set, got %v", projected[0].Fields)
	}
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	rows := []domain.Row{{ID: "r0", Fields: map[string]any{"a": 1, "b": 2}}}
	Project(rows, []string{"a"}, map[string]string{"a": "alpha"})
	if rows[0].Fields["a"] != 1 || rows[0].Fields["b"] != 2 {
		t.Fatalf("input rows mutated: %v", rows[0].Fields)
	}
}
