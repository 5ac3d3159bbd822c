package schema

import "github.com/starford/othala/internal/models"

// BuildTree assembles a Tree from flat asset-type records.
//
// Only records reachable from rootParentID are included: with a nil
// rootParentID that is every root record and its descendants, otherwise the
// subtree below the given id. Children keep the order of records.
//
// The build runs in two passes. The first links children to parents in
// breadth-first order; the second walks that same parent-before-child order
// and sets EffectiveFields to the parent's effective fields followed by the
// node's own fields.
func BuildTree(records []models.AssetType, rootParentID *string) *Tree {
	nodes := make([]*Node, len(records))
	children := make(map[string][]int, len(records))
	var roots []int

	for i, rec := range records {
		own := rec.Fields
		if own == nil {
			own = []models.FieldDefinition{}
		}
		nodes[i] = &Node{
			ID:        rec.ID,
			Name:      rec.Name,
			ParentID:  rec.ParentID,
			OwnFields: own,
			Children:  []*Node{},
		}
		switch {
		case rec.ParentID == nil && rootParentID == nil:
			roots = append(roots, i)
		case rec.ParentID != nil && rootParentID != nil && *rec.ParentID == *rootParentID:
			roots = append(roots, i)
		}
		if rec.ParentID != nil {
			children[*rec.ParentID] = append(children[*rec.ParentID], i)
		}
	}

	// Pass 1: attach children level by level.
	order := make([]int, 0, len(records))
	visited := make([]bool, len(records))
	queue := append([]int(nil), roots...)
	for _, r := range roots {
		visited[r] = true
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, c := range children[nodes[i].ID] {
			if visited[c] {
				continue
			}
			visited[c] = true
			nodes[i].Children = append(nodes[i].Children, nodes[c])
			queue = append(queue, c)
		}
	}

	// Pass 2: propagate inherited fields, parents first.
	parentOf := make(map[string]*Node, len(order))
	for _, i := range order {
		for _, c := range nodes[i].Children {
			parentOf[c.ID] = nodes[i]
		}
	}
	for _, i := range order {
		n := nodes[i]
		var inherited []models.FieldDefinition
		if p, ok := parentOf[n.ID]; ok {
			inherited = p.EffectiveFields
		}
		eff := make([]models.FieldDefinition, 0, len(inherited)+len(n.OwnFields))
		eff = append(eff, inherited...)
		eff = append(eff, n.OwnFields...)
		n.EffectiveFields = eff
	}

	t := &Tree{Roots: make([]*Node, 0, len(roots))}
	for _, r := range roots {
		t.Roots = append(t.Roots, nodes[r])
	}
	if rootParentID == nil {
		for i, seen := range visited {
			if !seen {
				t.unreachable = append(t.unreachable, records[i].ID)
			}
		}
	}
	return t
}
