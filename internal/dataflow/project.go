package dataflow

import "github.com/flowgrid/flowgrid/internal/domain"

// Project builds a new row set retaining only the selected fields,
// renamed where an alias is configured. Unselected fields are dropped
// entirely; a selected field absent on a given row is omitted from
// that row's output rather than padded. Row metadata is carried over
// unchanged.
//
// Project assumes a conflict-free alias config: the editor rejects an
// alias that would make two selected fields share an output name
// before it ever reaches this function (FilterConfig.CommitAlias). If
// that precondition is violated anyway, the last field written wins.
func Project(rows []domain.Row, selectedFields []string, aliases map[string]string) []domain.Row {
	projected := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		fields := make(map[string]any, len(selectedFields))
		for _, field := range selectedFields {
			value, ok := row.Fields[field]
			if !ok {
				continue
			}
			name := field
			if alias, ok := aliases[field]; ok && alias != "" {
				name = alias
			}
			fields[name] = value
		}
		projected = append(projected, domain.Row{
			ID:        row.ID,
			NodeID:    row.NodeID,
			NodeLabel: row.NodeLabel,
			Fields:    fields,
		})
	}
	return projected
}
