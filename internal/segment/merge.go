package segment

import (
	"context"
	"io"

	"github.com/hupe1980/lexgo/internal/postings"
	"github.com/hupe1980/lexgo/internal/termdict"
	"github.com/hupe1980/lexgo/internal/tombstone"
	"github.com/hupe1980/lexgo/model"
)

const deletedDoc = ^uint32(0)

// Merge combines the source segments into one new segment written to
// out, physically dropping tombstoned documents and remapping the
// survivors to contiguous doc ids in source order. dels is parallel to
// srcs; a nil entry means no deletions. It returns the merged document
// count.
//
// Sources are never mutated; the caller publishes the new segment (and
// retires the old ones) only after Merge returns nil.
func Merge(ctx context.Context, out io.Writer, segID model.SegmentID, c Compression, srcs []*Reader, dels []*tombstone.Set) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Remap doc ids: survivors get contiguous new ids in source order,
	// so concatenated posting lists stay strictly increasing.
	remaps := make([][]uint32, len(srcs))
	var docLens []uint32
	var totalTokens uint64
	var next uint32

	for i, src := range srcs {
		remap := make([]uint32, src.DocCount())
		for id := uint32(0); id < src.DocCount(); id++ {
			if dels[i] != nil && dels[i].Contains(model.DocID(id)) {
				remap[id] = deletedDoc
				continue
			}
			remap[id] = next
			n := src.DocLen(model.DocID(id))
			docLens = append(docLens, n)
			totalTokens += uint64(n)
			next++
		}
		remaps[i] = remap
	}

	builder := termdict.NewBuilder()
	var postingsBlob []byte

	cursors := make([]int, len(srcs))
	docs := make([]uint32, 0, 64)
	freqs := make([]uint32, 0, 64)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		// Pick the smallest current term across all source dictionaries.
		var minTerm model.Term
		found := false
		for i, src := range srcs {
			if cursors[i] >= src.dict.Len() {
				continue
			}
			t := src.dict.EntryAt(cursors[i]).Term
			if !found || t.Compare(minTerm) < 0 {
				minTerm = t
				found = true
			}
		}
		if !found {
			break
		}

		docs = docs[:0]
		freqs = freqs[:0]
		for i, src := range srcs {
			if cursors[i] >= src.dict.Len() {
				continue
			}
			e := src.dict.EntryAt(cursors[i])
			if e.Term != minTerm {
				continue
			}
			cursors[i]++

			it := postings.NewIterator(src.postings[e.Offset : e.Offset+e.Length])
			for it.Next() {
				newID := remaps[i][it.Doc()]
				if newID == deletedDoc {
					continue
				}
				docs = append(docs, newID)
				freqs = append(freqs, it.Freq())
			}
			if err := it.Err(); err != nil {
				return 0, err
			}
		}

		// A term can vanish entirely when all its documents are deleted.
		if len(docs) == 0 {
			continue
		}

		offset := uint64(len(postingsBlob))
		var err error
		postingsBlob, err = postings.Encode(postingsBlob, docs, freqs)
		if err != nil {
			return 0, err
		}
		if err := builder.Add(termdict.Entry{
			Term:    minTerm,
			Offset:  offset,
			Length:  uint64(len(postingsBlob)) - offset,
			DocFreq: uint32(len(docs)),
		}); err != nil {
			return 0, err
		}
	}

	if err := writeSegment(out, segID, c, builder.Build(), postingsBlob, docLens, totalTokens); err != nil {
		return 0, err
	}
	return next, nil
}
