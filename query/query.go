// Package query defines the boolean term-query tree accepted by the
// executor. Query-language parsing happens upstream; callers build trees
// directly with the constructors below.
package query

import (
	"fmt"
	"strings"

	"github.com/hupe1980/lexgo/model"
)

// Query is a node in a boolean term-query tree.
type Query interface {
	fmt.Stringer

	isQuery()
}

// TermQuery matches all documents containing a single term.
type TermQuery struct {
	Term model.Term
}

// Term creates a leaf query matching the given (field, token) pair.
func Term(field, token string) *TermQuery {
	return &TermQuery{Term: model.Term{Field: field, Token: token}}
}

func (q *TermQuery) isQuery() {}

func (q *TermQuery) String() string { return q.Term.String() }

// AndQuery matches documents matching all sub-queries.
type AndQuery struct {
	Subs []Query
}

// And creates a conjunction of the given sub-queries.
func And(subs ...Query) *AndQuery {
	return &AndQuery{Subs: subs}
}

func (q *AndQuery) isQuery() {}

func (q *AndQuery) String() string { return join("AND", q.Subs) }

// OrQuery matches documents matching at least one sub-query.
type OrQuery struct {
	Subs []Query
}

// Or creates a disjunction of the given sub-queries.
func Or(subs ...Query) *OrQuery {
	return &OrQuery{Subs: subs}
}

func (q *OrQuery) isQuery() {}

func (q *OrQuery) String() string { return join("OR", q.Subs) }

// NotQuery matches all live documents NOT matching the sub-query.
type NotQuery struct {
	Sub Query
}

// Not creates a negation of the given sub-query.
func Not(sub Query) *NotQuery {
	return &NotQuery{Sub: sub}
}

func (q *NotQuery) isQuery() {}

func (q *NotQuery) String() string { return fmt.Sprintf("(NOT %s)", q.Sub) }

func join(op string, subs []Query) string {
	parts := make([]string, len(subs))
	for i, s := range subs {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}
