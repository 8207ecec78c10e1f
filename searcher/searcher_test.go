package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/query"
	"github.com/hupe1980/lexgo/scoring"
)

type fakePosting struct {
	doc, freq uint32
}

type fakeIterator struct {
	postings []fakePosting
	pos      int
	failAt   int // inject an error before emitting postings[failAt]; -1 disables
	err      error
}

func (f *fakeIterator) Next() bool {
	if f.err != nil {
		return false
	}
	if f.failAt >= 0 && f.pos == f.failAt {
		f.err = errors.New("fake: corrupt posting")
		return false
	}
	if f.pos >= len(f.postings) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeIterator) Doc() uint32  { return f.postings[f.pos-1].doc }
func (f *fakeIterator) Freq() uint32 { return f.postings[f.pos-1].freq }
func (f *fakeIterator) Err() error   { return f.err }

type fakeSegment struct {
	docCount    uint32
	totalTokens uint64
	docLens     map[model.DocID]uint32
	postings    map[model.Term][]fakePosting
	deleted     map[model.DocID]bool
	failTerm    *model.Term
}

func (f *fakeSegment) DocCount() uint32    { return f.docCount }
func (f *fakeSegment) TotalTokens() uint64 { return f.totalTokens }

func (f *fakeSegment) DocLen(id model.DocID) uint32 { return f.docLens[id] }

func (f *fakeSegment) DocFreq(term model.Term) uint32 {
	return uint32(len(f.postings[term]))
}

func (f *fakeSegment) TermPostings(term model.Term) (PostingsIterator, bool) {
	p, ok := f.postings[term]
	if !ok {
		return nil, false
	}
	it := &fakeIterator{postings: p, failAt: -1}
	if f.failTerm != nil && *f.failTerm == term {
		it.failAt = 0
	}
	return it, true
}

func (f *fakeSegment) IsLive(id model.DocID) bool { return !f.deleted[id] }

// twoDocSegment indexes doc 0 = "rust safe" and doc 1 = "rust fast" in
// field body.
func twoDocSegment() *fakeSegment {
	return &fakeSegment{
		docCount:    2,
		totalTokens: 4,
		docLens:     map[model.DocID]uint32{0: 2, 1: 2},
		postings: map[model.Term][]fakePosting{
			{Field: "body", Token: "rust"}: {{0, 1}, {1, 1}},
			{Field: "body", Token: "safe"}: {{0, 1}},
			{Field: "body", Token: "fast"}: {{1, 1}},
		},
	}
}

func TestExecuteTermQuery(t *testing.T) {
	exec := New(scoring.Boolean())
	seg := twoDocSegment()

	hits, err := exec.Execute(context.Background(), query.Term("body", "rust"), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.Equal(t, model.GlobalID(1), hits[1].ID)

	hits, err = exec.Execute(context.Background(), query.Term("body", "safe"), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
}

func TestExecuteMissingTerm(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()

	hits, err := exec.Execute(context.Background(), query.Term("body", "slow"), []Segment{seg})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Unknown field behaves like an unknown token.
	hits, err = exec.Execute(context.Background(), query.Term("title", "rust"), []Segment{seg})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestExecuteConjunction(t *testing.T) {
	exec := New(scoring.Boolean())
	seg := twoDocSegment()

	// safe AND fast never co-occur.
	hits, err := exec.Execute(context.Background(),
		query.And(query.Term("body", "safe"), query.Term("body", "fast")),
		[]Segment{seg})
	require.NoError(t, err)
	assert.Empty(t, hits)

	// rust AND safe matches only doc 0; the conjunction sums sub-scores.
	hits, err = exec.Execute(context.Background(),
		query.And(query.Term("body", "rust"), query.Term("body", "safe")),
		[]Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.InDelta(t, 2.0, float64(hits[0].Score), 1e-6)
}

func TestExecuteConjunctionWithMissingLeg(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()

	hits, err := exec.Execute(context.Background(),
		query.And(query.Term("body", "rust"), query.Term("body", "slow")),
		[]Segment{seg})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestExecuteDisjunction(t *testing.T) {
	exec := New(scoring.Boolean())
	seg := twoDocSegment()

	hits, err := exec.Execute(context.Background(),
		query.Or(query.Term("body", "safe"), query.Term("body", "fast")),
		[]Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.Equal(t, model.GlobalID(1), hits[1].ID)

	// A doc matching both legs gets the summed score and appears once.
	hits, err = exec.Execute(context.Background(),
		query.Or(query.Term("body", "rust"), query.Term("body", "safe")),
		[]Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.InDelta(t, 2.0, float64(hits[0].Score), 1e-6)
	assert.Equal(t, model.GlobalID(1), hits[1].ID)
	assert.InDelta(t, 1.0, float64(hits[1].Score), 1e-6)
}

func TestExecuteNegation(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()

	// NOT safe yields doc 1 with zero score.
	hits, err := exec.Execute(context.Background(),
		query.Not(query.Term("body", "safe")), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.GlobalID(1), hits[0].ID)
	assert.Zero(t, hits[0].Score)

	// rust AND NOT fast.
	hits, err = exec.Execute(context.Background(),
		query.And(query.Term("body", "rust"), query.Not(query.Term("body", "fast"))),
		[]Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
}

func TestExecuteNegationOfMissingTermMatchesAll(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()

	hits, err := exec.Execute(context.Background(),
		query.Not(query.Term("body", "slow")), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestExecuteMultiSegmentBaseOffsets(t *testing.T) {
	exec := New(scoring.Boolean())

	seg1 := twoDocSegment()
	seg2 := &fakeSegment{
		docCount:    1,
		totalTokens: 1,
		docLens:     map[model.DocID]uint32{0: 1},
		postings: map[model.Term][]fakePosting{
			{Field: "body", Token: "rust"}: {{0, 1}},
		},
	}

	hits, err := exec.Execute(context.Background(),
		query.Term("body", "rust"), []Segment{seg1, seg2})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// seg2's local doc 0 maps to global id 2.
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.Equal(t, model.GlobalID(1), hits[1].ID)
	assert.Equal(t, model.GlobalID(2), hits[2].ID)
}

func TestExecuteFiltersDeletedDocs(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()
	seg.deleted = map[model.DocID]bool{0: true}

	hits, err := exec.Execute(context.Background(),
		query.Term("body", "rust"), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.GlobalID(1), hits[0].ID)

	// Negation also respects tombstones: NOT fast would yield doc 0,
	// which is deleted.
	hits, err = exec.Execute(context.Background(),
		query.Not(query.Term("body", "fast")), []Segment{seg})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestExecuteDeterministicOrdering(t *testing.T) {
	exec := New(scoring.Boolean())
	seg := twoDocSegment()

	want, err := exec.Execute(context.Background(),
		query.Or(query.Term("body", "rust"), query.Term("body", "safe")),
		[]Segment{seg})
	require.NoError(t, err)

	for range 10 {
		got, err := exec.Execute(context.Background(),
			query.Or(query.Term("body", "rust"), query.Term("body", "safe")),
			[]Segment{seg})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestExecuteSurfacesIteratorError(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()
	term := model.Term{Field: "body", Token: "rust"}
	seg.failTerm = &term

	hits, err := exec.Execute(context.Background(),
		query.Term("body", "rust"), []Segment{seg})
	require.Error(t, err)
	assert.Nil(t, hits)
}

func TestExecuteCancelledContext(t *testing.T) {
	exec := New(nil)
	seg := twoDocSegment()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, query.Term("body", "rust"), []Segment{seg})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteTFScoring(t *testing.T) {
	exec := New(scoring.TF())
	seg := &fakeSegment{
		docCount:    2,
		totalTokens: 5,
		docLens:     map[model.DocID]uint32{0: 3, 1: 2},
		postings: map[model.Term][]fakePosting{
			{Field: "body", Token: "go"}: {{0, 3}, {1, 1}},
		},
	}

	hits, err := exec.Execute(context.Background(),
		query.Term("body", "go"), []Segment{seg})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Doc 0 has the higher term frequency and must rank first.
	assert.Equal(t, model.GlobalID(0), hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}
