package segment

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/lexgo/internal/hash"
	"github.com/hupe1980/lexgo/internal/postings"
	"github.com/hupe1980/lexgo/internal/termdict"
	"github.com/hupe1980/lexgo/model"
)

type writerState uint8

const (
	stateOpen writerState = iota
	stateFlushed
	stateFailed
)

type termBuffer struct {
	docs  []uint32
	freqs []uint32
}

// Writer buffers documents in memory and flushes them into a single
// immutable segment. The lifecycle is Open -> Flushed (terminal); a
// failed flush moves the writer to a failed terminal state instead.
type Writer struct {
	compression Compression

	state       writerState
	buffers     map[model.Term]*termBuffer
	docLens     []uint32
	totalTokens uint64
}

// NewWriter creates a segment writer. The writer exclusively owns its
// in-memory buffer until Flush. The segment id is not fixed until Flush,
// so a buffer can outlive manifest changes made while it fills.
func NewWriter(c Compression) *Writer {
	return &Writer{
		compression: c,
		buffers:     make(map[model.Term]*termBuffer),
	}
}

// DocCount returns the number of buffered documents.
func (w *Writer) DocCount() uint32 {
	return uint32(len(w.docLens))
}

// Add buffers a document and returns its assigned segment-local doc id.
// Doc ids increase monotonically in add order, which keeps every per-term
// posting list strictly increasing by construction.
func (w *Writer) Add(doc model.Document) (model.DocID, error) {
	if w.state != stateOpen {
		return 0, fmt.Errorf("%w: add after flush", ErrInvalidState)
	}

	docID := uint32(len(w.docLens))

	tf := make(map[model.Term]uint32)
	var tokens uint64
	for _, f := range doc.Fields {
		for _, tok := range f.Tokens {
			tf[model.Term{Field: f.Name, Token: tok}]++
			tokens++
		}
	}

	for term, count := range tf {
		buf := w.buffers[term]
		if buf == nil {
			buf = &termBuffer{}
			w.buffers[term] = buf
		}
		buf.docs = append(buf.docs, docID)
		buf.freqs = append(buf.freqs, count)
	}

	w.docLens = append(w.docLens, uint32(tokens))
	w.totalTokens += tokens
	return model.DocID(docID), nil
}

// Flush sorts the buffered postings by term, serializes the dictionary
// and postings regions and writes the complete segment to out under the
// given segment id. The segment bytes are fully assembled in memory
// first, so either a complete, internally consistent segment reaches out
// or nothing does. Flush may be called once; afterwards the writer is
// terminal.
func (w *Writer) Flush(ctx context.Context, segID model.SegmentID, out io.Writer) error {
	switch w.state {
	case stateFlushed:
		return fmt.Errorf("%w: flush after flush", ErrInvalidState)
	case stateFailed:
		return fmt.Errorf("%w: writer failed", ErrInvalidState)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	terms := make([]model.Term, 0, len(w.buffers))
	for term := range w.buffers {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		return terms[i].Compare(terms[j]) < 0
	})

	builder := termdict.NewBuilder()
	var postingsBlob []byte
	for _, term := range terms {
		buf := w.buffers[term]
		offset := uint64(len(postingsBlob))

		var err error
		postingsBlob, err = postings.Encode(postingsBlob, buf.docs, buf.freqs)
		if err != nil {
			w.state = stateFailed
			return err
		}

		if err := builder.Add(termdict.Entry{
			Term:    term,
			Offset:  offset,
			Length:  uint64(len(postingsBlob)) - offset,
			DocFreq: uint32(len(buf.docs)),
		}); err != nil {
			w.state = stateFailed
			return err
		}
	}

	err := writeSegment(out, segID, w.compression, builder.Build(), postingsBlob, w.docLens, w.totalTokens)
	if err != nil {
		w.state = stateFailed
		return err
	}

	w.state = stateFlushed
	w.buffers = nil
	return nil
}

// writeSegment assembles and writes a complete segment file. It is
// shared by Writer.Flush and Merge so both produce identical encodings.
func writeSegment(out io.Writer, segID model.SegmentID, c Compression, dict *termdict.Dictionary, postingsBlob []byte, docLens []uint32, totalTokens uint64) error {
	dictRaw := dict.AppendEncoded(nil)
	dictStored, usedCompression, err := compressBlock(dictRaw, c)
	if err != nil {
		return err
	}

	// Norms region: total token count, then one doc length per document.
	norms := make([]byte, 0, 8+len(docLens)*4)
	norms = binary.LittleEndian.AppendUint64(norms, totalTokens)
	for _, n := range docLens {
		norms = binary.LittleEndian.AppendUint32(norms, n)
	}

	dictOffset := uint64(headerSize)
	postingsOffset := dictOffset + uint64(len(dictStored))
	normsOffset := postingsOffset + uint64(len(postingsBlob))

	body := make([]byte, 0, len(dictStored)+len(postingsBlob)+len(norms))
	body = append(body, dictStored...)
	body = append(body, postingsBlob...)
	body = append(body, norms...)

	header := &fileHeader{
		Magic:          MagicNumber,
		Version:        Version,
		SegmentID:      uint64(segID),
		DocCount:       uint32(len(docLens)),
		TermCount:      uint32(dict.Len()),
		Compression:    uint8(usedCompression),
		Checksum:       hash.CRC32C(body),
		DictOffset:     dictOffset,
		DictLength:     uint64(len(dictStored)),
		DictRawLength:  uint64(len(dictRaw)),
		PostingsOffset: postingsOffset,
		PostingsLength: uint64(len(postingsBlob)),
		NormsOffset:    normsOffset,
	}

	if _, err := out.Write(header.encode()); err != nil {
		return err
	}
	if _, err := out.Write(body); err != nil {
		return err
	}
	return nil
}
