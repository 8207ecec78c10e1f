// Package termdict implements the per-segment term dictionary: a sorted
// array of (field, token) entries mapping each distinct term to the
// location of its posting list inside the postings region.
package termdict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/lexgo/model"
)

var (
	// ErrOutOfOrder is returned when terms are appended to a builder in
	// non-ascending order.
	ErrOutOfOrder = errors.New("termdict: terms must be added in ascending order")

	// ErrCorrupt is returned when encoded dictionary bytes fail to decode.
	ErrCorrupt = errors.New("termdict: data corruption detected")
)

// minEntrySize is the smallest possible encoded entry: two empty
// length-prefixed strings plus three single-byte uvarints.
const minEntrySize = 5

// Entry locates the posting list of one term within the postings region.
type Entry struct {
	Term model.Term
	// Offset is the byte offset of the posting list, relative to the
	// start of the postings region.
	Offset uint64
	// Length is the posting list's encoded byte length.
	Length uint64
	// DocFreq is the number of documents in the posting list.
	DocFreq uint32
}

// Builder accumulates entries in a single ascending pass.
type Builder struct {
	entries []Entry
	hasLast bool
	last    model.Term
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an entry. Terms must arrive in strictly ascending
// (field, token) order; violating this fails the build.
func (b *Builder) Add(e Entry) error {
	if b.hasLast && b.last.Compare(e.Term) >= 0 {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrder, e.Term, b.last)
	}
	b.entries = append(b.entries, e)
	b.last = e.Term
	b.hasLast = true
	return nil
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int { return len(b.entries) }

// Build finalizes the dictionary. The builder must not be reused.
func (b *Builder) Build() *Dictionary {
	return &Dictionary{entries: b.entries}
}

// Dictionary is an immutable, sorted term dictionary supporting binary
// search lookup. Safe for concurrent readers.
type Dictionary struct {
	entries []Entry
}

// Len returns the number of distinct terms.
func (d *Dictionary) Len() int { return len(d.entries) }

// Lookup returns the entry for term. The second result reports whether
// the term is present; an absent term is a valid outcome, not an error.
func (d *Dictionary) Lookup(term model.Term) (Entry, bool) {
	i := sort.Search(len(d.entries), func(i int) bool {
		return d.entries[i].Term.Compare(term) >= 0
	})
	if i < len(d.entries) && d.entries[i].Term == term {
		return d.entries[i], true
	}
	return Entry{}, false
}

// EntryAt returns the i-th entry in term order.
func (d *Dictionary) EntryAt(i int) Entry { return d.entries[i] }

// AppendEncoded serializes the dictionary and returns the extended buffer.
//
// Layout: uvarint entry count, then per entry the field and token as
// length-prefixed bytes followed by uvarint offset, length and doc freq.
func (d *Dictionary) AppendEncoded(buf []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(d.entries)))
	for _, e := range d.entries {
		buf = appendString(buf, e.Term.Field)
		buf = appendString(buf, e.Term.Token)
		buf = binary.AppendUvarint(buf, e.Offset)
		buf = binary.AppendUvarint(buf, e.Length)
		buf = binary.AppendUvarint(buf, uint64(e.DocFreq))
	}
	return buf
}

// Decode parses a serialized dictionary, validating term order.
func Decode(data []byte) (*Dictionary, error) {
	r := reader{data: data}

	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	// Each entry encodes to at least 5 bytes, so a count exceeding the
	// remaining data is corrupt. Checking before allocating keeps a
	// hostile count from forcing a huge preallocation.
	if n > uint64(len(data)-r.pos)/minEntrySize {
		return nil, fmt.Errorf("%w: entry count %d exceeds data size", ErrCorrupt, n)
	}

	entries := make([]Entry, 0, n)
	var prev model.Term
	for i := uint64(0); i < n; i++ {
		field, err := r.str()
		if err != nil {
			return nil, err
		}
		token, err := r.str()
		if err != nil {
			return nil, err
		}
		off, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		length, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		df, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if df > uint64(^uint32(0)) {
			return nil, fmt.Errorf("%w: doc freq overflow", ErrCorrupt)
		}

		term := model.Term{Field: field, Token: token}
		if i > 0 && prev.Compare(term) >= 0 {
			return nil, fmt.Errorf("%w: terms out of order (%s after %s)", ErrCorrupt, term, prev)
		}
		prev = term

		entries = append(entries, Entry{
			Term:    term,
			Offset:  off,
			Length:  length,
			DocFreq: uint32(df),
		})
	}

	if r.pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data)-r.pos)
	}

	return &Dictionary{entries: entries}, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) uvarint() (uint64, error) {
	v, sz := binary.Uvarint(r.data[r.pos:])
	if sz <= 0 {
		return 0, fmt.Errorf("%w: truncated dictionary", ErrCorrupt)
	}
	r.pos += sz
	return v, nil
}

func (r *reader) str() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	if uint64(len(r.data)-r.pos) < n {
		return "", fmt.Errorf("%w: truncated string", ErrCorrupt)
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}
