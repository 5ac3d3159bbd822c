package facet

import (
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
)

// Distribution is the facet distribution reported by the search index:
// field slug → value → document count.
type Distribution map[string]map[string]int

// FacetedFields returns the fields that can be offered as discrete facets:
// facetable type, declared on (or inherited by) one of the selected asset
// types, and present in dist with at least one value. With no selection
// every asset type qualifies. Fields are returned once, in tree pre-order.
func FacetedFields(tree *schema.Tree, dist Distribution, selected []string) []models.FieldDefinition {
	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}

	seen := make(map[string]struct{})
	out := []models.FieldDefinition{}
	for _, n := range tree.Nodes() {
		if len(want) > 0 {
			if _, ok := want[n.Name]; !ok {
				continue
			}
		}
		for _, f := range n.EffectiveFields {
			if _, dup := seen[f.ID]; dup {
				continue
			}
			if !f.Type.Facetable() || len(dist[f.Slug]) == 0 {
				continue
			}
			seen[f.ID] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
