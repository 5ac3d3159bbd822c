package index

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/starford/othala/internal/apperr"
)

// Filter grammar:
//
//	expr       = and { "OR" and }
//	and        = unary { "AND" unary }
//	unary      = "NOT" unary | "(" expr ")" | comparison
//	comparison = string ( "=" | "!=" ) string
//
// Strings are double-quoted with backslash escapes. AND binds tighter than OR.

type orExpr struct {
	Left  *andExpr   `parser:"@@"`
	Right []*andExpr `parser:"( 'OR' @@ )*"`
}

type andExpr struct {
	Left  *unaryExpr   `parser:"@@"`
	Right []*unaryExpr `parser:"( 'AND' @@ )*"`
}

type unaryExpr struct {
	Not *unaryExpr  `parser:"  'NOT' @@"`
	Sub *orExpr     `parser:"| '(' @@ ')'"`
	Cmp *comparison `parser:"| @@"`
}

type comparison struct {
	Key   string `parser:"@String"`
	Op    string `parser:"@( '!=' | '=' )"`
	Value string `parser:"@String"`
}

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Keyword", Pattern: `\b(AND|OR|NOT)\b`},
	{Name: "Op", Pattern: `!=|=`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var filterParser = participle.MustBuild[orExpr](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// whereClause is a SQL boolean expression over the documents alias d.
type whereClause struct {
	sql  string
	args []any
}

// parseFilter compiles a filter expression into SQL. An empty expression
// yields an empty clause.
func parseFilter(expr string) (whereClause, error) {
	if strings.TrimSpace(expr) == "" {
		return whereClause{}, nil
	}
	ast, err := filterParser.ParseString("filter", expr)
	if err != nil {
		return whereClause{}, fmt.Errorf("%w: %s", apperr.ErrMalformedExpression, err)
	}
	var w whereClause
	var b strings.Builder
	ast.emit(&b, &w.args)
	w.sql = b.String()
	return w, nil
}

func (e *orExpr) emit(b *strings.Builder, args *[]any) {
	if len(e.Right) == 0 {
		e.Left.emit(b, args)
		return
	}
	b.WriteByte('(')
	e.Left.emit(b, args)
	for _, r := range e.Right {
		b.WriteString(" OR ")
		r.emit(b, args)
	}
	b.WriteByte(')')
}

func (e *andExpr) emit(b *strings.Builder, args *[]any) {
	if len(e.Right) == 0 {
		e.Left.emit(b, args)
		return
	}
	b.WriteByte('(')
	e.Left.emit(b, args)
	for _, r := range e.Right {
		b.WriteString(" AND ")
		r.emit(b, args)
	}
	b.WriteByte(')')
}

func (e *unaryExpr) emit(b *strings.Builder, args *[]any) {
	switch {
	case e.Not != nil:
		b.WriteString("NOT ")
		e.Not.emit(b, args)
	case e.Sub != nil:
		e.Sub.emit(b, args)
	default:
		e.Cmp.emit(b, args)
	}
}

func (c *comparison) emit(b *strings.Builder, args *[]any) {
	if c.Op == "!=" {
		b.WriteString("NOT ")
	}
	b.WriteString(`EXISTS (SELECT 1 FROM document_values v
		WHERE v.team_id = d.team_id AND v.doc_id = d.id AND v.key = ? AND v.value = ?)`)
	*args = append(*args, c.Key, c.Value)
}
