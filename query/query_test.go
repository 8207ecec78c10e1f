package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryString(t *testing.T) {
	q := And(
		Term("body", "rust"),
		Or(Term("body", "safe"), Term("title", "fast")),
		Not(Term("body", "slow")),
	)

	assert.Equal(t,
		"(body:rust AND (body:safe OR title:fast) AND (NOT body:slow))",
		q.String())
}

func TestTermQueryFields(t *testing.T) {
	q := Term("title", "rust")
	assert.Equal(t, "title", q.Term.Field)
	assert.Equal(t, "rust", q.Term.Token)
}
