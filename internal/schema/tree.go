// Package schema resolves the asset-type hierarchy and the field inheritance
// along it.
package schema

import (
	"fmt"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Node is one asset type inside a resolved Tree.
type Node struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	ParentID        *string                  `json:"parentId,omitempty"`
	OwnFields       []models.FieldDefinition `json:"ownFields"`
	EffectiveFields []models.FieldDefinition `json:"effectiveFields"`
	Children        []*Node                  `json:"children"`
}

// Entry is a node together with its depth, as produced by Flatten.
type Entry struct {
	Node  *Node `json:"node"`
	Depth int   `json:"depth"`
}

// Tree is a forest of asset types. It is read-only once built.
type Tree struct {
	Roots       []*Node `json:"roots"`
	unreachable []string
}

// FindByID searches the forest depth-first.
func (t *Tree) FindByID(id string) (*Node, bool) {
	stack := make([]*Node, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, t.Roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.ID == id {
			return n, true
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil, false
}

// Flatten lists every node in pre-order. With withLevel the depth of each
// entry is reported (roots are 0); without it every depth is 0.
func (t *Tree) Flatten(withLevel bool) []Entry {
	var out []Entry
	walk(t.Roots, func(n *Node, depth int) {
		if !withLevel {
			depth = 0
		}
		out = append(out, Entry{Node: n, Depth: depth})
	})
	return out
}

// Nodes lists every node in pre-order.
func (t *Tree) Nodes() []*Node {
	var out []*Node
	walk(t.Roots, func(n *Node, _ int) { out = append(out, n) })
	return out
}

// Len returns the number of nodes in the forest.
func (t *Tree) Len() int {
	n := 0
	walk(t.Roots, func(*Node, int) { n++ })
	return n
}

// Unreachable returns the ids of records that could not be attached to the
// forest, either because their parent is unknown or because they sit on a
// parent cycle.
func (t *Tree) Unreachable() []string {
	return t.unreachable
}

// Descendants returns every node below id in pre-order, excluding id itself.
// It returns nil when id is not in the tree.
func (t *Tree) Descendants(id string) []*Node {
	n, ok := t.FindByID(id)
	if !ok {
		return nil
	}
	var out []*Node
	walk(n.Children, func(d *Node, _ int) { out = append(out, d) })
	return out
}

// CheckParent validates making parentID the parent of nodeID. nodeID is
// empty for a node that does not exist yet. A nil parentID (root) is always
// accepted.
func (t *Tree) CheckParent(nodeID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if nodeID != "" && *parentID == nodeID {
		return fmt.Errorf("%w: asset type cannot be its own parent", apperr.ErrInvalidHierarchy)
	}
	if _, ok := t.FindByID(*parentID); !ok {
		return fmt.Errorf("parent asset type %s: %w", *parentID, apperr.ErrNotFound)
	}
	if nodeID == "" {
		return nil
	}
	for _, d := range t.Descendants(nodeID) {
		if d.ID == *parentID {
			return fmt.Errorf("%w: asset type cannot be moved below its own descendant", apperr.ErrInvalidHierarchy)
		}
	}
	return nil
}

// walk visits nodes in pre-order without recursion.
func walk(roots []*Node, visit func(n *Node, depth int)) {
	type frame struct {
		node  *Node
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(f.node, f.depth)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}
