package dataflow

import (
	"fmt"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// Join merges two row sets on joinKey. Side B is indexed by the
// string-coerced key value (missing and nil keys share the "" bucket),
// so one A row can fan out over multiple B matches. Merged rows copy
// B's fields first and overwrite with A's, so A wins on collision.
// Every emitted row gets a fresh "{nodeID}-{counter}" id and the join
// node's provenance.
//
// In full mode, A rows without a match are emitted alone, followed by
// the B rows no A row ever matched; in inner mode unmatched rows are
// dropped. An empty joinKey means the join is not configured yet and
// the result is simply A concatenated with B, rows unchanged.
func Join(sideA, sideB []domain.Row, joinKey string, mode domain.JoinMode, nodeID, nodeLabel string) []domain.Row {
	if joinKey == "" {
		out := make([]domain.Row, 0, len(sideA)+len(sideB))
		for _, row := range sideA {
			out = append(out, row.Clone())
		}
		for _, row := range sideB {
			out = append(out, row.Clone())
		}
		return out
	}

	index := make(map[string][]int, len(sideB))
	for i, row := range sideB {
		key := keyValue(row, joinKey)
		index[key] = append(index[key], i)
	}

	matched := make([]bool, len(sideB))
	counter := 0
	emit := func(fields map[string]any) domain.Row {
		row := domain.Row{
			ID:        fmt.Sprintf("%s-%d", nodeID, counter),
			NodeID:    nodeID,
			NodeLabel: nodeLabel,
			Fields:    fields,
		}
		counter++
		return row
	}

	var results []domain.Row
	for _, a := range sideA {
		bucket := index[keyValue(a, joinKey)]
		if len(bucket) == 0 {
			if mode == domain.JoinModeFull {
				results = append(results, emit(domain.CopyFields(a.Fields)))
			}
			continue
		}
		for _, idx := range bucket {
			matched[idx] = true
			b := sideB[idx]
			fields := make(map[string]any, len(a.Fields)+len(b.Fields))
			for k, v := range b.Fields {
				fields[k] = v
			}
			for k, v := range a.Fields {
				fields[k] = v
			}
			results = append(results, emit(fields))
		}
	}

	if mode == domain.JoinModeFull {
		for i, b := range sideB {
			if matched[i] {
				continue
			}
			results = append(results, emit(domain.CopyFields(b.Fields)))
		}
	}

	return results
}

func keyValue(row domain.Row, key string) string {
	value, ok := row.Fields[key]
	if !ok || value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
