package domain

import "encoding/json"

// Edge is a directed connection between two nodes. SourceHandle and
// TargetHandle disambiguate multi-port nodes (a filter's "filtered" vs
// "all" outputs, a join's "a" vs "b" inputs); either may be empty.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle Handle `json:"sourceHandle,omitempty"`
	TargetHandle Handle `json:"targetHandle,omitempty"`
}

func EdgesToJSON(edges []Edge) (json.RawMessage, error) {
	if edges == nil {
		edges = []Edge{}
	}
	return json.Marshal(edges)
}

func EdgesFromJSON(data json.RawMessage) ([]Edge, error) {
	if len(data) == 0 {
		return []Edge{}, nil
	}
	var edges []Edge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, err
	}
	if edges == nil {
		edges = []Edge{}
	}
	return edges, nil
}
