// Package model defines core types used throughout lexgo.
//
// # Identity Types
//
//   - SegmentID: Unique identifier for a segment (uint64)
//   - DocID: Segment-local document identifier (uint32)
//   - GlobalID: Index-wide document identifier (uint64)
//
// # Data Types
//
//   - Term: (field, token) pair, ordered lexicographically
//   - Document: ordered sequence of (field, token sequence) pairs
//   - ScoredDoc: search hit with global id and score
package model
