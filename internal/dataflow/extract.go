package dataflow

import (
	"fmt"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// ExtractRows converts a source node's own data into canonical rows.
// A single-record source emits exactly one row carrying its descriptor
// fields verbatim; a batch source emits one row per contained record,
// with ids of the form "{nodeID}-{index}". Record values pass through
// untouched; any coercion happens at consumption time.
//
// Filter, join and sink nodes produce no rows here; they are only
// meaningful through the graph resolver.
func ExtractRows(node domain.Node) []domain.Row {
	if node.Kind != domain.NodeKindSource || node.Source == nil {
		return nil
	}
	cfg := node.Source

	if cfg.Records != nil {
		rows := make([]domain.Row, 0, len(cfg.Records))
		for i, record := range cfg.Records {
			rows = append(rows, domain.Row{
				ID:        fmt.Sprintf("%s-%d", node.ID, i),
				NodeID:    node.ID,
				NodeLabel: cfg.Label,
				Fields:    domain.CopyFields(record),
			})
		}
		return rows
	}

	fields := map[string]any{"label": cfg.Label}
	if cfg.Category != "" {
		fields["category"] = cfg.Category
	}
	if cfg.Status != "" {
		fields["status"] = cfg.Status
	}
	if cfg.Description != "" {
		fields["description"] = cfg.Description
	}
	if cfg.Count != nil {
		fields["count"] = *cfg.Count
	}
	if cfg.Timestamp != "" {
		fields["timestamp"] = cfg.Timestamp
	}

	return []domain.Row{{
		ID:        node.ID,
		NodeID:    node.ID,
		NodeLabel: cfg.Label,
		Fields:    fields,
	}}
}
