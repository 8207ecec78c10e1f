// Package testutil provides testing utilities for lexgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating reproducible random corpora and
// for computing ground-truth query matches with a naive evaluator.
//
// # Random Corpus Generation
//
//	rng := testutil.NewRNG(seed)
//	docs := testutil.GenerateDocs(rng, 1000, testutil.CorpusOptions{})
//
// # Ground Truth
//
//	want := testutil.MatchSet(docs, q)
package testutil
