package dataflow

import (
	"sort"

	"github.com/flowgrid/flowgrid/internal/domain"
)

// ResolveRows materializes the row set visible at the target node by
// walking the graph backward from it. Every invocation re-walks the
// relevant subgraph from scratch with its own visited set; there is no
// caching and no shared state, so concurrent resolutions never
// interfere. A cyclic path contributes an empty row set for the
// re-entered node instead of failing the whole resolution.
func ResolveRows(targetID string, nodes []domain.Node, edges []domain.Edge) []domain.Row {
	r := newResolver(nodes, edges)
	return r.resolve(targetID, map[string]struct{}{})
}

// JoinFieldDerivation is the read-only analysis of a join node used by
// the editor: the field names observed on each side, their
// intersection (the valid join-key candidates), and the live result
// count for the currently configured key.
type JoinFieldDerivation struct {
	FieldsA      []string `json:"fieldsA"`
	FieldsB      []string `json:"fieldsB"`
	CommonFields []string `json:"commonFields"`
	MatchedCount int      `json:"matchedCount"`
}

// DeriveJoinFields resolves both sides of a join node independently,
// seeded with a visited set excluding only the join node itself, and
// reports the derived schema. MatchedCount is non-zero only when the
// configured key is one of the common fields. The graph is never
// mutated.
func DeriveJoinFields(joinNodeID string, nodes []domain.Node, edges []domain.Edge) JoinFieldDerivation {
	derivation := JoinFieldDerivation{
		FieldsA:      []string{},
		FieldsB:      []string{},
		CommonFields: []string{},
	}

	r := newResolver(nodes, edges)
	node, ok := r.nodes[joinNodeID]
	if !ok || node.Kind != domain.NodeKindJoin {
		return derivation
	}

	sideA, sideB := r.resolveJoinSides(node, map[string]struct{}{})
	derivation.FieldsA = fieldNames(sideA)
	derivation.FieldsB = fieldNames(sideB)
	derivation.CommonFields = intersect(derivation.FieldsA, derivation.FieldsB)

	if node.Join != nil && node.Join.JoinKey != "" && contains(derivation.CommonFields, node.Join.JoinKey) {
		joined := Join(sideA, sideB, node.Join.JoinKey, joinMode(node), node.ID, node.Label())
		derivation.MatchedCount = len(joined)
	}
	return derivation
}

type resolver struct {
	nodes map[string]domain.Node
	edges []domain.Edge
}

func newResolver(nodes []domain.Node, edges []domain.Edge) *resolver {
	index := make(map[string]domain.Node, len(nodes))
	for _, node := range nodes {
		index[node.ID] = node
	}
	return &resolver{nodes: index, edges: edges}
}

// resolve accumulates the contributions of every edge ending at
// targetID, in edge order. A join target is delegated to join-side
// resolution because its inputs must be split into two named sides
// before merging, which the generic per-edge recursion cannot express.
func (r *resolver) resolve(targetID string, visited map[string]struct{}) []domain.Row {
	if _, seen := visited[targetID]; seen {
		return nil
	}
	visited[targetID] = struct{}{}

	if node, ok := r.nodes[targetID]; ok && node.Kind == domain.NodeKindJoin {
		sideA, sideB := r.resolveJoinSides(node, visited)
		return r.applyJoin(node, sideA, sideB)
	}

	var rows []domain.Row
	for _, edge := range r.edges {
		if edge.Target != targetID {
			continue
		}
		rows = append(rows, r.resolveEdge(edge, visited)...)
	}
	return rows
}

// resolveEdge produces the row contribution of one edge by dispatching
// on the source node's kind.
func (r *resolver) resolveEdge(edge domain.Edge, visited map[string]struct{}) []domain.Row {
	source, ok := r.nodes[edge.Source]
	if !ok {
		return nil
	}

	switch source.Kind {
	case domain.NodeKindSource:
		// Source nodes have a single output; the handle id is moot.
		return ExtractRows(source)

	case domain.NodeKindFilter:
		upstream := r.resolve(source.ID, visited)
		if edge.SourceHandle == domain.HandleFiltered && source.Filter != nil {
			return Project(upstream, source.Filter.Selected, source.Filter.Aliases)
		}
		// "all" or no handle: unfiltered passthrough.
		return upstream

	case domain.NodeKindJoin:
		if _, seen := visited[source.ID]; seen {
			return nil
		}
		sideA, sideB := r.resolveJoinSides(source, visited)
		return r.applyJoin(source, sideA, sideB)

	default:
		// Sinks and unrecognized kinds contribute no rows.
		return nil
	}
}

// resolveJoinSides partitions the join node's incoming edges by target
// handle and resolves each group. Every edge is walked with its own
// copy of the visited set so the two sides (which may share upstream
// nodes) cannot starve each other; each copy includes the join node's
// id to stop a malformed graph from re-entering it.
func (r *resolver) resolveJoinSides(node domain.Node, visited map[string]struct{}) (sideA, sideB []domain.Row) {
	for _, edge := range r.edges {
		if edge.Target != node.ID {
			continue
		}
		branch := make(map[string]struct{}, len(visited)+1)
		for id := range visited {
			branch[id] = struct{}{}
		}
		branch[node.ID] = struct{}{}

		rows := r.resolveEdge(edge, branch)
		if edge.TargetHandle == domain.HandleSideB {
			sideB = append(sideB, rows...)
		} else {
			sideA = append(sideA, rows...)
		}
	}
	return sideA, sideB
}

func (r *resolver) applyJoin(node domain.Node, sideA, sideB []domain.Row) []domain.Row {
	key := ""
	if node.Join != nil {
		key = node.Join.JoinKey
	}
	return Join(sideA, sideB, key, joinMode(node), node.ID, node.Label())
}

func joinMode(node domain.Node) domain.JoinMode {
	if node.Join != nil && node.Join.Mode != "" {
		return node.Join.Mode
	}
	return domain.JoinModeInner
}

// fieldNames returns the sorted, deduplicated union of non-metadata
// field names across the rows.
func fieldNames(rows []domain.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Fields {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// intersect assumes both inputs are sorted and returns their sorted
// intersection.
func intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, name := range b {
		inB[name] = struct{}{}
	}
	common := make([]string, 0)
	for _, name := range a {
		if _, ok := inB[name]; ok {
			common = append(common, name)
		}
	}
	return common
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
