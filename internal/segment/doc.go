// Package segment implements the on-disk segment format: an immutable,
// checksummed unit holding a term dictionary, a postings region and a
// norms region (per-document token counts).
//
// Layout:
//
//	+--------+------------------+----------+-----------------------+
//	| header | term dictionary  | postings | total tokens, doclens |
//	+--------+------------------+----------+-----------------------+
//
// The header carries a CRC32-C of everything after it. The dictionary
// block may be compressed (s2 or lz4); the postings region is stored raw
// so individual posting lists can be sliced without inflating the whole
// segment. Segments are written once by a Writer or Merge and never
// mutated; deletions live in a tombstone overlay next to the segment.
package segment
