package domain

// Row is the canonical record flowing through the graph: a flat field
// bag plus reserved provenance metadata. The synthetic ID is unique
// within one resolution pass but not stable across passes. Rows are
// never mutated in place; every transformation constructs new rows.
type Row struct {
	ID        string         `json:"id"`
	NodeID    string         `json:"nodeId"`
	NodeLabel string         `json:"nodeLabel"`
	Fields    map[string]any `json:"fields"`
}

// Clone returns a copy of the row with its own field map.
func (r Row) Clone() Row {
	return Row{
		ID:        r.ID,
		NodeID:    r.NodeID,
		NodeLabel: r.NodeLabel,
		Fields:    CopyFields(r.Fields),
	}
}

// CopyFields shallow-copies a field map. Values are scalars so a
// shallow copy is sufficient.
func CopyFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return copied
}
