package model

import "fmt"

// SegmentID is the unique identifier for a segment within an index.
type SegmentID uint64

// DocID is a dense, segment-local document identifier.
// It is assigned at add time and may change during a merge.
type DocID uint32

// GlobalID identifies a document across all segments of a segment set.
// It is derived from the segment-local DocID plus the per-segment base
// offset assigned at segment-set construction time.
type GlobalID uint64

// Term is a (field, token) pair, the unit of dictionary lookup.
// Terms order lexicographically by field, then token.
type Term struct {
	Field string
	Token string
}

// Compare returns -1, 0 or +1 depending on the order of t relative to o.
func (t Term) Compare(o Term) int {
	if t.Field != o.Field {
		if t.Field < o.Field {
			return -1
		}
		return 1
	}
	if t.Token != o.Token {
		if t.Token < o.Token {
			return -1
		}
		return 1
	}
	return 0
}

// String returns a string representation of the term.
func (t Term) String() string {
	return fmt.Sprintf("%s:%s", t.Field, t.Token)
}

// Field is a named token sequence within a document.
// Tokenization happens upstream; the index only sees tokens.
type Field struct {
	Name   string
	Tokens []string
}

// Document is an ordered sequence of fields.
type Document struct {
	Fields []Field
}

// Len returns the total number of tokens across all fields.
func (d Document) Len() int {
	var n int
	for _, f := range d.Fields {
		n += len(f.Tokens)
	}
	return n
}

// ScoredDoc is a single search hit.
type ScoredDoc struct {
	// ID is the global document identifier.
	ID GlobalID
	// Score is the similarity score (model-dependent).
	Score float32
}
