package postings

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	docs := []uint32{0, 1, 5, 6, 100, 4096, 1 << 20}
	freqs := []uint32{1, 3, 2, 1, 7, 1, 42}

	buf, err := Encode(nil, docs, freqs)
	require.NoError(t, err)

	it := NewIterator(buf)
	assert.Equal(t, len(docs), it.Count())

	var gotDocs, gotFreqs []uint32
	for it.Next() {
		gotDocs = append(gotDocs, it.Doc())
		gotFreqs = append(gotFreqs, it.Freq())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, docs, gotDocs)
	assert.Equal(t, freqs, gotFreqs)
}

func TestEncode_RejectsUnsorted(t *testing.T) {
	_, err := Encode(nil, []uint32{3, 3}, []uint32{1, 1})
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = Encode(nil, []uint32{5, 2}, []uint32{1, 1})
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = Encode(nil, []uint32{1, 2}, []uint32{1, 0})
	assert.ErrorIs(t, err, ErrUnsorted)

	_, err = Encode(nil, []uint32{1, 2}, []uint32{1})
	assert.Error(t, err)
}

func TestIterator_Restartable(t *testing.T) {
	buf, err := Encode(nil, []uint32{2, 9}, []uint32{1, 4})
	require.NoError(t, err)

	it := NewIterator(buf)
	require.True(t, it.Next())
	assert.Equal(t, uint32(2), it.Doc())

	it.Reset()
	var docs []uint32
	for it.Next() {
		docs = append(docs, it.Doc())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []uint32{2, 9}, docs)
}

func TestIterator_CorruptZeroGap(t *testing.T) {
	// Hand-craft a list where the second gap is 0 (duplicate doc id).
	var buf []byte
	buf = binary.AppendUvarint(buf, 2) // count
	buf = binary.AppendUvarint(buf, 7) // doc 7
	buf = binary.AppendUvarint(buf, 1) // freq
	buf = binary.AppendUvarint(buf, 0) // gap 0 -> doc 7 again
	buf = binary.AppendUvarint(buf, 1)

	it := NewIterator(buf)
	require.True(t, it.Next())
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorrupt)
}

func TestIterator_CorruptTruncated(t *testing.T) {
	buf, err := Encode(nil, []uint32{1, 2, 3}, []uint32{1, 1, 1})
	require.NoError(t, err)

	it := NewIterator(buf[:len(buf)-2])
	for it.Next() {
	}
	assert.ErrorIs(t, it.Err(), ErrCorrupt)
}

func TestIterator_CorruptTrailingBytes(t *testing.T) {
	buf, err := Encode(nil, []uint32{1}, []uint32{1})
	require.NoError(t, err)
	buf = append(buf, 0xff)

	it := NewIterator(buf)
	for it.Next() {
	}
	assert.ErrorIs(t, it.Err(), ErrCorrupt)
}

func TestIterator_CorruptZeroFreq(t *testing.T) {
	var buf []byte
	buf = binary.AppendUvarint(buf, 1)
	buf = binary.AppendUvarint(buf, 3)
	buf = binary.AppendUvarint(buf, 0) // freq 0 is invalid

	it := NewIterator(buf)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorrupt)
}

func TestIterator_Empty(t *testing.T) {
	buf, err := Encode(nil, nil, nil)
	require.NoError(t, err)

	it := NewIterator(buf)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
	assert.Equal(t, 0, it.Count())
}

func TestEncodeDecode_Large(t *testing.T) {
	const n = 10_000
	docs := make([]uint32, n)
	freqs := make([]uint32, n)
	for i := range docs {
		docs[i] = uint32(i * 3)
		freqs[i] = uint32(i%7 + 1)
	}

	buf, err := Encode(nil, docs, freqs)
	require.NoError(t, err)

	it := NewIterator(buf)
	require.Equal(t, n, it.Count())

	var prev uint32
	var count int
	for it.Next() {
		if count > 0 {
			require.Greater(t, it.Doc(), prev)
		}
		require.Equal(t, docs[count], it.Doc())
		require.Equal(t, freqs[count], it.Freq())
		prev = it.Doc()
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, n, count)
}
