// Package searcher implements the query executor: it resolves a boolean
// term-query tree against a set of immutable segments and merges the
// per-segment results into one deterministic, globally addressed result
// set.
package searcher

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/query"
	"github.com/hupe1980/lexgo/scoring"
)

// Segment is the read view the executor needs from one segment.
// Implementations must be safe for concurrent readers.
type Segment interface {
	// DocCount returns the number of documents, including tombstoned ones.
	DocCount() uint32
	// TotalTokens returns the token count across all documents.
	TotalTokens() uint64
	// DocLen returns the token count of one document.
	DocLen(id model.DocID) uint32
	// DocFreq returns the number of documents containing term (0 if absent).
	DocFreq(term model.Term) uint32
	// TermPostings returns the posting iterator for term; false if absent.
	TermPostings(term model.Term) (PostingsIterator, bool)
	// IsLive reports whether a document is not tombstoned.
	IsLive(id model.DocID) bool
}

// Executor runs queries against segment sets. It is stateless apart
// from the similarity model and safe for concurrent use.
type Executor struct {
	sim scoring.Similarity
}

// New creates an executor with the given similarity model.
// A nil similarity falls back to scoring.Default.
func New(sim scoring.Similarity) *Executor {
	if sim == nil {
		sim = scoring.Default
	}
	return &Executor{sim: sim}
}

// Execute evaluates q against every segment in order and returns the
// merged result set. Segment-local doc ids are mapped to global ids via
// per-segment base offsets (segment i's base is the sum of the doc
// counts of segments 0..i-1). Tombstoned documents never appear.
//
// Results are ordered by descending score, ties broken by ascending
// global id, so output is reproducible across runs and implementations.
// Decode errors abort the whole query; partial results are never
// returned.
func (e *Executor) Execute(ctx context.Context, q query.Query, segs []Segment) ([]model.ScoredDoc, error) {
	bases := make([]uint64, len(segs))
	var base uint64
	for i, seg := range segs {
		bases[i] = base
		base += uint64(seg.DocCount())
	}

	results := make([][]model.ScoredDoc, len(segs))

	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hits, err := e.executeSegment(q, seg, bases[i])
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.ScoredDoc, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e *Executor) executeSegment(q query.Query, seg Segment, base uint64) ([]model.ScoredDoc, error) {
	it, err := e.build(q, seg)
	if err != nil {
		return nil, err
	}

	var hits []model.ScoredDoc
	for it.next() {
		d := it.doc()
		if !seg.IsLive(model.DocID(d)) {
			continue
		}
		hits = append(hits, model.ScoredDoc{
			ID:    model.GlobalID(base + uint64(d)),
			Score: it.score(),
		})
	}
	if err := it.err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (e *Executor) build(q query.Query, seg Segment) (scoredIterator, error) {
	switch node := q.(type) {
	case *query.TermQuery:
		pit, ok := seg.TermPostings(node.Term)
		if !ok {
			return emptyIterator{}, nil
		}
		return &termScorer{
			it:  pit,
			sim: e.sim,
			stats: scoring.Stats{
				DocCount:    seg.DocCount(),
				DocFreq:     seg.DocFreq(node.Term),
				TotalTokens: seg.TotalTokens(),
			},
			docLen: seg.DocLen,
		}, nil

	case *query.AndQuery:
		subs, err := e.buildSubs(node.Subs, seg)
		if err != nil {
			return nil, err
		}
		switch len(subs) {
		case 0:
			return emptyIterator{}, nil
		case 1:
			return subs[0], nil
		}
		return newConjunction(subs), nil

	case *query.OrQuery:
		subs, err := e.buildSubs(node.Subs, seg)
		if err != nil {
			return nil, err
		}
		switch len(subs) {
		case 0:
			return emptyIterator{}, nil
		case 1:
			return subs[0], nil
		}
		return newDisjunction(subs), nil

	case *query.NotQuery:
		sub, err := e.build(node.Sub, seg)
		if err != nil {
			return nil, err
		}
		return newNegation(seg.DocCount(), sub), nil

	default:
		return nil, fmt.Errorf("searcher: unsupported query type %T", q)
	}
}

func (e *Executor) buildSubs(qs []query.Query, seg Segment) ([]scoredIterator, error) {
	subs := make([]scoredIterator, 0, len(qs))
	for _, q := range qs {
		sub, err := e.build(q, seg)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
