package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline is the persisted editor document: the full node and edge
// collections of one canvas. The resolution engine only ever sees an
// immutable snapshot of Nodes and Edges.
type Pipeline struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Pipeline) NodeByID(id string) (Node, bool) {
	for _, node := range p.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}
