package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/query"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// CorpusOptions parameterizes GenerateDocs. Zero values select the
// defaults noted per field.
type CorpusOptions struct {
	Field     string // default "body"
	VocabSize int    // default 32
	MinTokens int    // default 1
	MaxTokens int    // default 8
}

func (o *CorpusOptions) defaults() {
	if o.Field == "" {
		o.Field = "body"
	}
	if o.VocabSize <= 0 {
		o.VocabSize = 32
	}
	if o.MinTokens <= 0 {
		o.MinTokens = 1
	}
	if o.MaxTokens < o.MinTokens {
		o.MaxTokens = o.MinTokens + 7
	}
}

// Token returns the i-th vocabulary token ("t0", "t1", ...).
func Token(i int) string {
	return fmt.Sprintf("t%d", i)
}

// GenerateDocs produces n reproducible single-field documents whose
// tokens are drawn uniformly from a synthetic vocabulary. The same seed
// always yields the same corpus.
func GenerateDocs(rng *RNG, n int, opts CorpusOptions) []model.Document {
	opts.defaults()

	docs := make([]model.Document, n)
	for i := range docs {
		count := opts.MinTokens + rng.Intn(opts.MaxTokens-opts.MinTokens+1)
		tokens := make([]string, count)
		for j := range tokens {
			tokens[j] = Token(rng.Intn(opts.VocabSize))
		}
		docs[i] = model.Document{Fields: []model.Field{
			{Name: opts.Field, Tokens: tokens},
		}}
	}
	return docs
}

// Matches reports whether doc satisfies q under naive evaluation. It is
// the ground-truth oracle for boolean semantics: a term matches when the
// token occurs in the named field, AND/OR/NOT compose set-wise.
func Matches(doc model.Document, q query.Query) bool {
	switch node := q.(type) {
	case *query.TermQuery:
		for _, f := range doc.Fields {
			if f.Name != node.Term.Field {
				continue
			}
			for _, tok := range f.Tokens {
				if tok == node.Term.Token {
					return true
				}
			}
		}
		return false
	case *query.AndQuery:
		for _, sub := range node.Subs {
			if !Matches(doc, sub) {
				return false
			}
		}
		return true
	case *query.OrQuery:
		for _, sub := range node.Subs {
			if Matches(doc, sub) {
				return true
			}
		}
		return false
	case *query.NotQuery:
		return !Matches(doc, node.Sub)
	default:
		return false
	}
}

// MatchSet returns the ids of all documents in docs that satisfy q,
// in ascending order. Document i has id i.
func MatchSet(docs []model.Document, q query.Query) []model.GlobalID {
	var out []model.GlobalID
	for i, doc := range docs {
		if Matches(doc, q) {
			out = append(out, model.GlobalID(i))
		}
	}
	return out
}
