// Package tombstone implements per-segment deletion bitmaps. Segments
// are immutable, so a deletion is recorded as a tombstone overlay; the
// document's postings stay in place until a merge reclaims them.
package tombstone

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/lexgo/internal/hash"
	"github.com/hupe1980/lexgo/model"
)

const (
	magic   = 0x4C584454 // "LXDT"
	version = 1

	// header: magic(4) + version(4) + payload length(4) + crc32c(4)
	headerSize = 16
)

// ErrCorrupt is returned when tombstone bytes fail to decode.
var ErrCorrupt = errors.New("tombstone: data corruption detected")

// Set is a mutable deletion bitmap for one segment. Mutation is guarded
// internally; Clone produces an immutable snapshot for publication.
type Set struct {
	mu sync.RWMutex
	rb *roaring.Bitmap
}

// NewSet creates an empty tombstone set.
func NewSet() *Set {
	return &Set{rb: roaring.New()}
}

// Delete marks a segment-local doc id as deleted. It reports whether the
// id was newly added.
func (s *Set) Delete(id model.DocID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rb.CheckedAdd(uint32(id))
}

// Contains reports whether a doc id is deleted.
func (s *Set) Contains(id model.DocID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rb.Contains(uint32(id))
}

// Len returns the number of deleted documents.
func (s *Set) Len() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rb.GetCardinality()
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Set{rb: s.rb.Clone()}
}

// MarshalBinary serializes the set with a checksummed header.
func (s *Set) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, err := s.rb.ToBytes()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], magic)
	binary.LittleEndian.PutUint32(buf[4:], version)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[12:], hash.CRC32C(payload))
	return append(buf, payload...), nil
}

// Unmarshal parses a serialized set, verifying the checksum.
func Unmarshal(data []byte) (*Set, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if binary.LittleEndian.Uint32(data[0:]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	n := binary.LittleEndian.Uint32(data[8:])
	payload := data[headerSize:]
	if uint32(len(payload)) != n {
		return nil, fmt.Errorf("%w: payload length mismatch (%d != %d)", ErrCorrupt, len(payload), n)
	}
	if crc := hash.CRC32C(payload); crc != binary.LittleEndian.Uint32(data[12:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	rb := roaring.New()
	if err := rb.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &Set{rb: rb}, nil
}
