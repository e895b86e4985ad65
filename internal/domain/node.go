package domain

import (
	"encoding/json"
	"fmt"
)

type NodeKind string

const (
	NodeKindSource NodeKind = "source"
	NodeKindFilter NodeKind = "filter"
	NodeKindJoin   NodeKind = "join"
	NodeKindSink   NodeKind = "sink"
)

// Handle identifies a named input or output port on a node. Edges carry
// handle ids to disambiguate which logical stream they connect.
type Handle string

const (
	// Filter output handles. An edge with an empty source handle takes
	// the unfiltered passthrough.
	HandleFiltered Handle = "filtered"
	HandleAll      Handle = "all"

	// Join input handles. An edge with an empty target handle lands on
	// side A.
	HandleSideA Handle = "a"
	HandleSideB Handle = "b"
)

// Node is a vertex of the pipeline graph. Exactly one of the config
// pointers matching Kind is expected to be set; the resolver treats a
// node with a missing config as producing no rows.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`

	Source *SourceConfig `json:"source,omitempty"`
	Filter *FilterConfig `json:"filter,omitempty"`
	Join   *JoinConfig   `json:"join,omitempty"`
	Sink   *SinkConfig   `json:"sink,omitempty"`
}

// SourceConfig describes a data source node. A nil Records slice means
// the node is a single-record source emitting one row built from the
// descriptor fields; a non-nil slice means the node wraps a batch of
// records, one row each.
type SourceConfig struct {
	Label       string   `json:"label"`
	Category    string   `json:"category,omitempty"`
	Status      string   `json:"status,omitempty"`
	Description string   `json:"description,omitempty"`
	Count       *float64 `json:"count,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`

	Records []map[string]any `json:"records,omitempty"`
}

// FilterConfig describes a field projection node. Available is
// populated from upstream by the editor; Selected is the user's chosen
// subset; Aliases renames selected fields on the filtered output.
type FilterConfig struct {
	Label     string            `json:"label"`
	Available []string          `json:"available,omitempty"`
	Selected  []string          `json:"selected,omitempty"`
	Aliases   map[string]string `json:"aliases,omitempty"`
}

type JoinMode string

const (
	JoinModeInner JoinMode = "inner"
	JoinModeFull  JoinMode = "full"
)

// JoinConfig describes a two-way join node. An empty JoinKey means the
// join is not yet configured and the node degrades to concatenating
// both sides.
type JoinConfig struct {
	Label   string   `json:"label"`
	JoinKey string   `json:"joinKey,omitempty"`
	Mode    JoinMode `json:"mode,omitempty"`
}

type SinkConfig struct {
	Label string `json:"label"`
}

// Label returns the human-readable label of the node's active config.
func (n Node) Label() string {
	switch n.Kind {
	case NodeKindSource:
		if n.Source != nil {
			return n.Source.Label
		}
	case NodeKindFilter:
		if n.Filter != nil {
			return n.Filter.Label
		}
	case NodeKindJoin:
		if n.Join != nil {
			return n.Join.Label
		}
	case NodeKindSink:
		if n.Sink != nil {
			return n.Sink.Label
		}
	}
	return ""
}

// EffectiveName returns the output name a selected field is exposed
// under on the filtered handle: its alias if one is set, otherwise the
// field name itself.
func (c FilterConfig) EffectiveName(field string) string {
	if alias, ok := c.Aliases[field]; ok && alias != "" {
		return alias
	}
	return field
}

// CommitAlias validates and applies an alias for a selected field. It
// rejects the change when the field is not currently selected or when
// the alias would make two selected fields share an effective output
// name; a rejected alias leaves the config untouched. An empty alias
// clears any existing alias for the field.
func (c *FilterConfig) CommitAlias(field, alias string) error {
	selected := false
	for _, candidate := range c.Selected {
		if candidate == field {
			selected = true
			break
		}
	}
	if !selected {
		return fmt.Errorf("field %q is not selected", field)
	}

	if alias == "" {
		delete(c.Aliases, field)
		return nil
	}

	for _, other := range c.Selected {
		if other == field {
			continue
		}
		if c.EffectiveName(other) == alias {
			return fmt.Errorf("alias %q collides with output name of field %q", alias, other)
		}
	}

	if c.Aliases == nil {
		c.Aliases = make(map[string]string)
	}
	c.Aliases[field] = alias
	return nil
}

// ValidateAliases checks the committed-config invariant: every alias
// key is a selected field and no two selected fields share an
// effective output name.
func (c FilterConfig) ValidateAliases() error {
	selected := make(map[string]struct{}, len(c.Selected))
	for _, field := range c.Selected {
		selected[field] = struct{}{}
	}
	for field := range c.Aliases {
		if _, ok := selected[field]; !ok {
			return fmt.Errorf("alias set for unselected field %q", field)
		}
	}
	seen := make(map[string]string, len(c.Selected))
	for _, field := range c.Selected {
		name := c.EffectiveName(field)
		if other, ok := seen[name]; ok {
			return fmt.Errorf("fields %q and %q share output name %q", other, field, name)
		}
		seen[name] = field
	}
	return nil
}

func NodesToJSON(nodes []Node) (json.RawMessage, error) {
	if nodes == nil {
		nodes = []Node{}
	}
	return json.Marshal(nodes)
}

func NodesFromJSON(data json.RawMessage) ([]Node, error) {
	if len(data) == 0 {
		return []Node{}, nil
	}
	var nodes []Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []Node{}
	}
	return nodes, nil
}
