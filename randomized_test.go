package lexgo

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/query"
	"github.com/hupe1980/lexgo/testutil"
)

// sortedIDs projects hits to ascending ids, since result order is by
// score while the oracle enumerates by id.
func sortedIDs(hits []model.ScoredDoc) []model.GlobalID {
	out := ids(hits)
	slices.Sort(out)
	return out
}

// TestIndexAgainstNaiveOracle indexes a random corpus under a random
// flush schedule and checks every query shape against naive set-wise
// evaluation of the same documents.
func TestIndexAgainstNaiveOracle(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(7)
	docs := testutil.GenerateDocs(rng, 300, testutil.CorpusOptions{VocabSize: 16})

	idx, err := Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)
	defer idx.Close()

	for _, doc := range docs {
		_, err = idx.Add(ctx, doc)
		require.NoError(t, err)
		// Random segment boundaries so multi-segment paths get hit.
		if rng.Intn(20) == 0 {
			_, err = idx.Flush(ctx)
			require.NoError(t, err)
		}
	}
	_, err = idx.Flush(ctx)
	require.NoError(t, err)
	require.Greater(t, idx.Stats().Segments, 1)

	term := func() query.Query {
		return query.Term("body", testutil.Token(rng.Intn(16)))
	}
	queries := []query.Query{
		term(),
		term(),
		query.And(term(), term()),
		query.Or(term(), term(), term()),
		query.And(term(), query.Not(term())),
		query.Or(query.And(term(), term()), term()),
		query.Not(term()),
	}

	for _, q := range queries {
		hits, err := idx.Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, testutil.MatchSet(docs, q), sortedIDs(hits), "query %s", q)
	}
}

// TestMergePreservesOracle merges the fragmented index down to one
// segment and re-checks the oracle: merging must not change which
// documents match.
func TestMergePreservesOracle(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(11)
	docs := testutil.GenerateDocs(rng, 200, testutil.CorpusOptions{VocabSize: 12})

	idx, err := Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)
	defer idx.Close()

	for i, doc := range docs {
		_, err = idx.Add(ctx, doc)
		require.NoError(t, err)
		if i%37 == 36 {
			_, err = idx.Flush(ctx)
			require.NoError(t, err)
		}
	}
	_, err = idx.Flush(ctx)
	require.NoError(t, err)

	_, err = idx.Merge(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Stats().Segments)

	for i := range 12 {
		q := query.Term("body", testutil.Token(i))
		hits, err := idx.Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, testutil.MatchSet(docs, q), sortedIDs(hits), "query %s", q)
	}
}
