package segment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

const (
	// MagicNumber identifies a segment file ("LEX1").
	MagicNumber = 0x4C455831
	// Version is the current segment format version.
	Version = 1
)

var (
	// ErrCorrupt is returned when segment bytes fail decode invariants
	// (bad magic, checksum mismatch, inconsistent region bounds).
	ErrCorrupt = errors.New("segment: data corruption detected")

	// ErrIncompatibleFormat is returned when the on-disk format version
	// is not supported.
	ErrIncompatibleFormat = errors.New("segment: incompatible format")

	// ErrInvalidState is returned when a writer operation is not valid
	// in the current lifecycle state (e.g. adding after flush).
	ErrInvalidState = errors.New("segment: invalid writer state")
)

// Compression selects the codec for the term-dictionary block. The
// postings region is always stored raw so posting lists can be sliced
// without decompressing the whole segment.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionS2
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// fileHeader describes the layout of a segment file. It is stored at the
// beginning of the file; the checksum covers everything after it.
type fileHeader struct {
	Magic          uint32
	Version        uint32
	SegmentID      uint64
	DocCount       uint32
	TermCount      uint32
	Compression    uint8
	Checksum       uint32 // CRC32-C of the body
	DictOffset     uint64
	DictLength     uint64 // stored (possibly compressed) length
	DictRawLength  uint64
	PostingsOffset uint64
	PostingsLength uint64
	NormsOffset    uint64
}

// headerSize is the fixed encoded size of fileHeader:
// magic(4) + version(4) + segmentID(8) + docCount(4) + termCount(4) +
// compression(1) + pad(3) + checksum(4) + 6 offsets/lengths (48).
const headerSize = 4 + 4 + 8 + 4 + 4 + 1 + 3 + 4 + 48

func (h *fileHeader) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	binary.LittleEndian.PutUint64(buf[8:], h.SegmentID)
	binary.LittleEndian.PutUint32(buf[16:], h.DocCount)
	binary.LittleEndian.PutUint32(buf[20:], h.TermCount)
	buf[24] = h.Compression
	// padding [25:28]
	binary.LittleEndian.PutUint32(buf[28:], h.Checksum)
	binary.LittleEndian.PutUint64(buf[32:], h.DictOffset)
	binary.LittleEndian.PutUint64(buf[40:], h.DictLength)
	binary.LittleEndian.PutUint64(buf[48:], h.DictRawLength)
	binary.LittleEndian.PutUint64(buf[56:], h.PostingsOffset)
	binary.LittleEndian.PutUint64(buf[64:], h.PostingsLength)
	binary.LittleEndian.PutUint64(buf[72:], h.NormsOffset)
	return buf
}

func decodeHeader(buf []byte) (*fileHeader, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: buffer too small for header", ErrCorrupt)
	}
	h := &fileHeader{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:])
	if h.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: invalid magic 0x%08X", ErrCorrupt, h.Magic)
	}
	h.Version = binary.LittleEndian.Uint32(buf[4:])
	if h.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, h.Version)
	}
	h.SegmentID = binary.LittleEndian.Uint64(buf[8:])
	h.DocCount = binary.LittleEndian.Uint32(buf[16:])
	h.TermCount = binary.LittleEndian.Uint32(buf[20:])
	h.Compression = buf[24]
	h.Checksum = binary.LittleEndian.Uint32(buf[28:])
	h.DictOffset = binary.LittleEndian.Uint64(buf[32:])
	h.DictLength = binary.LittleEndian.Uint64(buf[40:])
	h.DictRawLength = binary.LittleEndian.Uint64(buf[48:])
	h.PostingsOffset = binary.LittleEndian.Uint64(buf[56:])
	h.PostingsLength = binary.LittleEndian.Uint64(buf[64:])
	h.NormsOffset = binary.LittleEndian.Uint64(buf[72:])
	return h, nil
}

// compressBlock encodes raw with the requested codec. It returns the
// stored bytes and the codec actually used: incompressible blocks fall
// back to raw storage.
func compressBlock(raw []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil

	case CompressionS2:
		enc := s2.Encode(nil, raw)
		if len(enc) >= len(raw) {
			return raw, CompressionNone, nil
		}
		return enc, CompressionS2, nil

	case CompressionLZ4:
		var comp lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := comp.CompressBlock(raw, dst)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 || n >= len(raw) {
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil

	default:
		return nil, 0, fmt.Errorf("segment: unknown compression %d", c)
	}
}

// decompressBlock reverses compressBlock, validating the raw length.
func decompressBlock(stored []byte, rawLen uint64, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		if uint64(len(stored)) != rawLen {
			return nil, fmt.Errorf("%w: dictionary length mismatch", ErrCorrupt)
		}
		return stored, nil

	case CompressionS2:
		raw, err := s2.Decode(nil, stored)
		if err != nil {
			return nil, fmt.Errorf("%w: s2: %v", ErrCorrupt, err)
		}
		if uint64(len(raw)) != rawLen {
			return nil, fmt.Errorf("%w: dictionary length mismatch", ErrCorrupt)
		}
		return raw, nil

	case CompressionLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: dictionary length mismatch", ErrCorrupt)
		}
		return raw, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, c)
	}
}
