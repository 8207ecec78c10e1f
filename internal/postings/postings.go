// Package postings implements the posting-list codec: varint
// delta-encoded (doc id, frequency) sequences with strictly increasing
// doc ids, decoded through a lazy, restartable, forward-only iterator.
package postings

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned when encoded bytes violate the codec
	// invariants (non-monotonic doc ids, truncation, count mismatch).
	ErrCorrupt = errors.New("postings: data corruption detected")

	// ErrUnsorted is returned by Encode when doc ids are not strictly
	// increasing or a frequency is zero.
	ErrUnsorted = errors.New("postings: doc ids must be strictly increasing")
)

// Encode appends the encoded posting list for the given parallel doc id
// and frequency slices to buf and returns the extended buffer.
//
// Layout: uvarint count, then per posting a uvarint doc-id gap (the first
// gap is the absolute doc id) followed by a uvarint frequency. Gaps after
// the first must be >= 1 since doc ids are strictly increasing.
func Encode(buf []byte, docIDs []uint32, freqs []uint32) ([]byte, error) {
	if len(docIDs) != len(freqs) {
		return nil, fmt.Errorf("postings: %d doc ids but %d freqs", len(docIDs), len(freqs))
	}

	buf = binary.AppendUvarint(buf, uint64(len(docIDs)))

	var prev uint32
	for i, doc := range docIDs {
		if i > 0 && doc <= prev {
			return nil, fmt.Errorf("%w: doc %d after %d", ErrUnsorted, doc, prev)
		}
		if freqs[i] == 0 {
			return nil, fmt.Errorf("%w: zero frequency for doc %d", ErrUnsorted, doc)
		}

		gap := doc - prev
		if i == 0 {
			gap = doc
		}
		buf = binary.AppendUvarint(buf, uint64(gap))
		buf = binary.AppendUvarint(buf, uint64(freqs[i]))
		prev = doc
	}

	return buf, nil
}

// Iterator is a forward-only cursor over one encoded posting list.
// It is restartable from the start via Reset but does not support
// mid-stream seeking.
//
// Usage:
//
//	it := postings.NewIterator(data)
//	for it.Next() {
//	    _ = it.Doc()
//	    _ = it.Freq()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	data []byte

	pos       int
	remaining int
	count     int
	started   bool
	doc       uint32
	freq      uint32
	err       error
}

// NewIterator creates an iterator over an encoded posting list.
// The count header is validated lazily on the first call to Next.
func NewIterator(data []byte) *Iterator {
	it := &Iterator{data: data}
	it.Reset()
	return it
}

// Reset rewinds the iterator to the start of the posting list.
func (it *Iterator) Reset() {
	it.pos = 0
	it.remaining = 0
	it.count = 0
	it.started = false
	it.doc = 0
	it.freq = 0
	it.err = nil

	n, sz := binary.Uvarint(it.data)
	if sz <= 0 {
		it.err = fmt.Errorf("%w: invalid posting count", ErrCorrupt)
		return
	}
	it.pos = sz
	it.count = int(n)
	it.remaining = int(n)
}

// Count returns the declared number of postings in the list.
func (it *Iterator) Count() int { return it.count }

// Next advances to the next posting. It returns false when the list is
// exhausted or a decode error occurred; distinguish via Err.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.remaining == 0 {
		if it.pos != len(it.data) {
			it.err = fmt.Errorf("%w: %d trailing bytes after %d postings", ErrCorrupt, len(it.data)-it.pos, it.count)
		}
		return false
	}

	gap, ok := it.uvarint()
	if !ok {
		return false
	}
	freq, ok := it.uvarint()
	if !ok {
		return false
	}

	if it.started && gap == 0 {
		it.err = fmt.Errorf("%w: doc ids not strictly increasing at doc %d", ErrCorrupt, it.doc)
		return false
	}
	if freq == 0 {
		it.err = fmt.Errorf("%w: zero frequency", ErrCorrupt)
		return false
	}

	next := uint64(it.doc) + gap
	if !it.started {
		next = gap
	}
	if next > uint64(^uint32(0)) {
		it.err = fmt.Errorf("%w: doc id overflow", ErrCorrupt)
		return false
	}

	it.doc = uint32(next)
	it.freq = uint32(freq)
	it.started = true
	it.remaining--
	return true
}

// Doc returns the current doc id. Only valid after Next returned true.
func (it *Iterator) Doc() uint32 { return it.doc }

// Freq returns the current term frequency. Only valid after Next returned true.
func (it *Iterator) Freq() uint32 { return it.freq }

// Err returns the first decode error encountered, or nil on clean
// exhaustion. A truncated or inconsistent list always surfaces here;
// it is never silently shortened.
func (it *Iterator) Err() error { return it.err }

func (it *Iterator) uvarint() (uint64, bool) {
	v, sz := binary.Uvarint(it.data[it.pos:])
	if sz <= 0 {
		it.err = fmt.Errorf("%w: truncated posting list (%d postings missing)", ErrCorrupt, it.remaining)
		return 0, false
	}
	it.pos += sz
	return v, true
}
