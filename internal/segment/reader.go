package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/internal/hash"
	"github.com/hupe1980/lexgo/internal/postings"
	"github.com/hupe1980/lexgo/internal/termdict"
	"github.com/hupe1980/lexgo/model"
)

// Reader provides read-only query access to one immutable segment.
// Opening verifies the header and body checksum; any number of readers
// may open the same segment concurrently without coordination.
type Reader struct {
	blob blobstore.Blob

	segmentID   model.SegmentID
	docCount    uint32
	totalTokens uint64
	dict        *termdict.Dictionary
	postings    []byte
	docLens     []uint32
}

// Open reads and validates a segment from a blob. The blob stays open
// for the lifetime of the reader (the postings region may reference its
// mapped bytes directly) and is closed by Reader.Close.
func Open(blob blobstore.Blob) (*Reader, error) {
	data, err := blobBytes(blob)
	if err != nil {
		return nil, err
	}

	header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	if uint64(len(data)) != uint64(headerSize)+header.DictLength+header.PostingsLength+normsSize(header.DocCount) {
		return nil, fmt.Errorf("%w: file size does not match header", ErrCorrupt)
	}
	if header.DictOffset != headerSize ||
		header.PostingsOffset != header.DictOffset+header.DictLength ||
		header.NormsOffset != header.PostingsOffset+header.PostingsLength {
		return nil, fmt.Errorf("%w: inconsistent region offsets", ErrCorrupt)
	}

	body := data[headerSize:]
	if crc := hash.CRC32C(body); crc != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch (got 0x%08X, want 0x%08X)", ErrCorrupt, crc, header.Checksum)
	}

	dictRaw, err := decompressBlock(data[header.DictOffset:header.DictOffset+header.DictLength], header.DictRawLength, Compression(header.Compression))
	if err != nil {
		return nil, err
	}
	dict, err := termdict.Decode(dictRaw)
	if err != nil {
		return nil, err
	}
	if uint32(dict.Len()) != header.TermCount {
		return nil, fmt.Errorf("%w: term count mismatch", ErrCorrupt)
	}

	postingsRegion := data[header.PostingsOffset : header.PostingsOffset+header.PostingsLength]
	for i := 0; i < dict.Len(); i++ {
		e := dict.EntryAt(i)
		if e.Offset+e.Length > header.PostingsLength {
			return nil, fmt.Errorf("%w: posting list for %s out of bounds", ErrCorrupt, e.Term)
		}
	}

	norms := data[header.NormsOffset:]
	totalTokens := binary.LittleEndian.Uint64(norms)
	docLens := make([]uint32, header.DocCount)
	for i := range docLens {
		docLens[i] = binary.LittleEndian.Uint32(norms[8+i*4:])
	}

	return &Reader{
		blob:        blob,
		segmentID:   model.SegmentID(header.SegmentID),
		docCount:    header.DocCount,
		totalTokens: totalTokens,
		dict:        dict,
		postings:    postingsRegion,
		docLens:     docLens,
	}, nil
}

// blobBytes returns the blob's full contents. Mapped blobs are used
// zero-copy: the reader keeps the blob open for its whole lifetime, so
// the slice stays valid until Reader.Close.
func blobBytes(blob blobstore.Blob) ([]byte, error) {
	if m, ok := blob.(blobstore.Mappable); ok {
		return m.Bytes()
	}
	return blobstore.ReadAll(blob)
}

func normsSize(docCount uint32) uint64 {
	return 8 + uint64(docCount)*4
}

// SegmentID returns the segment's identifier.
func (r *Reader) SegmentID() model.SegmentID { return r.segmentID }

// DocCount returns the number of documents in the segment, including
// any that are tombstoned.
func (r *Reader) DocCount() uint32 { return r.docCount }

// TotalTokens returns the total token count across all documents.
func (r *Reader) TotalTokens() uint64 { return r.totalTokens }

// TermCount returns the number of distinct terms.
func (r *Reader) TermCount() int { return r.dict.Len() }

// DocLen returns the token count of a document.
func (r *Reader) DocLen(id model.DocID) uint32 {
	return r.docLens[id]
}

// DocFreq returns the number of documents containing term, or 0 if the
// term is absent.
func (r *Reader) DocFreq(term model.Term) uint32 {
	e, ok := r.dict.Lookup(term)
	if !ok {
		return 0
	}
	return e.DocFreq
}

// TermPostings returns a lazy iterator over the posting list for term.
// The second result is false when the term is absent, which is a valid
// outcome, not an error.
func (r *Reader) TermPostings(term model.Term) (*postings.Iterator, bool) {
	e, ok := r.dict.Lookup(term)
	if !ok {
		return nil, false
	}
	return postings.NewIterator(r.postings[e.Offset : e.Offset+e.Length]), true
}

// Close releases the underlying blob.
func (r *Reader) Close() error {
	return r.blob.Close()
}
