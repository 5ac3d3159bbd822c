package facet

import (
	"strings"

	"github.com/starford/othala/internal/models"
)

// Options controls expression output.
type Options struct {
	// Grouped wraps every multi-term clause in parentheses when the
	// expression has more than one clause, so OR never leaks across fields
	// regardless of the backend's operator precedence.
	Grouped bool
}

// Compile renders s in the compatible, unparenthesized form:
//
//	"color" = "red" OR "color" = "blue" AND "location" = "fridge"
//
// Field clauses come in insertion order, the asset-type clause last. An empty
// set compiles to "".
func Compile(s *FilterSet) string {
	return CompileWith(s, Options{})
}

// CompileWith renders s using opts.
func CompileWith(s *FilterSet, opts Options) string {
	var clauses [][]string
	for _, id := range s.order {
		f := s.filters[id]
		terms := make([]string, 0, len(f.Conditions))
		for _, c := range f.Conditions {
			terms = append(terms, term(f.Field.Slug, c.Value))
		}
		clauses = append(clauses, terms)
	}
	if len(s.selected) > 0 {
		terms := make([]string, 0, len(s.selected))
		for _, name := range s.selected {
			terms = append(terms, term(models.AssetTypeNameKey, name))
		}
		clauses = append(clauses, terms)
	}

	var b strings.Builder
	for i, terms := range clauses {
		if i > 0 {
			b.WriteString(" AND ")
		}
		wrap := opts.Grouped && len(clauses) > 1 && len(terms) > 1
		if wrap {
			b.WriteByte('(')
		}
		b.WriteString(strings.Join(terms, " OR "))
		if wrap {
			b.WriteByte(')')
		}
	}
	return b.String()
}

func term(key, value string) string {
	return quote(key) + " = " + quote(value)
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// quote wraps s in double quotes, escaping backslashes, quotes and newlines.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}
