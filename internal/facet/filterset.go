// Package facet holds the editable facet-filter state of a search and turns
// it into a filter expression for the search index.
package facet

import (
	"slices"

	"github.com/starford/othala/internal/models"
)

// Condition is one selected facet value. Key identifies the value (for TAG
// fields the tag id), Value is what the expression matches against.
type Condition struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Filter is the set of selected values for one field.
type Filter struct {
	Field      models.FieldDefinition `json:"field"`
	Conditions []Condition            `json:"conditions"`
}

// FilterSet is the filter state of one search: at most one Filter per field
// id plus the selected asset-type names. A stored Filter always has at least
// one condition.
//
// A FilterSet is not safe for concurrent use; see Session.
type FilterSet struct {
	order    []string
	filters  map[string]Filter
	selected []string
}

// NewFilterSet returns an empty FilterSet.
func NewFilterSet() *FilterSet {
	return &FilterSet{filters: make(map[string]Filter)}
}

// Upsert stores f under its field id, replacing any previous filter for that
// field in place. A filter without conditions removes the field's entry.
func (s *FilterSet) Upsert(f Filter) {
	id := f.Field.ID
	if len(f.Conditions) == 0 {
		if _, ok := s.filters[id]; ok {
			delete(s.filters, id)
			s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
		}
		return
	}
	if _, ok := s.filters[id]; !ok {
		s.order = append(s.order, id)
	}
	f.Conditions = slices.Clone(f.Conditions)
	s.filters[id] = f
}

// Clear removes every filter. The asset-type selection is kept.
func (s *FilterSet) Clear() {
	s.order = nil
	clear(s.filters)
}

// FilterFor returns a copy of the stored filter for field, or an empty one.
func (s *FilterSet) FilterFor(field models.FieldDefinition) Filter {
	f, ok := s.filters[field.ID]
	if !ok {
		return Filter{Field: field, Conditions: []Condition{}}
	}
	f.Conditions = slices.Clone(f.Conditions)
	return f
}

// Filters returns copies of all stored filters in insertion order.
func (s *FilterSet) Filters() []Filter {
	out := make([]Filter, 0, len(s.order))
	for _, id := range s.order {
		f := s.filters[id]
		f.Conditions = slices.Clone(f.Conditions)
		out = append(out, f)
	}
	return out
}

// Len returns the number of stored filters.
func (s *FilterSet) Len() int { return len(s.order) }

// SetSelectedAssetTypeNames replaces the selection. Duplicates and empty
// names are dropped; first occurrence wins.
func (s *FilterSet) SetSelectedAssetTypeNames(names []string) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	s.selected = out
}

// SelectedAssetTypeNames returns a copy of the selection.
func (s *FilterSet) SelectedAssetTypeNames() []string {
	return slices.Clone(s.selected)
}
