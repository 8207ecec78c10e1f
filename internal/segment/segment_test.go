package segment

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/model"
)

func doc(field string, tokens ...string) model.Document {
	return model.Document{Fields: []model.Field{{Name: field, Tokens: tokens}}}
}

func flushToBlob(t *testing.T, w *Writer, segID model.SegmentID) blobstore.Blob {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, w.Flush(context.Background(), segID, &buf))

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "seg", buf.Bytes()))
	blob, err := store.Open(context.Background(), "seg")
	require.NoError(t, err)
	return blob
}

func TestWriter_FlushAndRead(t *testing.T) {
	w := NewWriter(CompressionNone)

	id0, err := w.Add(doc("body", "rust", "safe"))
	require.NoError(t, err)
	assert.Equal(t, model.DocID(0), id0)

	id1, err := w.Add(doc("body", "rust", "fast", "rust"))
	require.NoError(t, err)
	assert.Equal(t, model.DocID(1), id1)

	r, err := Open(flushToBlob(t, w, 7))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, model.SegmentID(7), r.SegmentID())
	assert.Equal(t, uint32(2), r.DocCount())
	assert.Equal(t, uint64(5), r.TotalTokens())
	assert.Equal(t, uint32(2), r.DocLen(0))
	assert.Equal(t, uint32(3), r.DocLen(1))
	assert.Equal(t, 3, r.TermCount()) // rust, safe, fast

	it, ok := r.TermPostings(model.Term{Field: "body", Token: "rust"})
	require.True(t, ok)
	require.True(t, it.Next())
	assert.Equal(t, uint32(0), it.Doc())
	assert.Equal(t, uint32(1), it.Freq())
	require.True(t, it.Next())
	assert.Equal(t, uint32(1), it.Doc())
	assert.Equal(t, uint32(2), it.Freq())
	assert.False(t, it.Next())
	require.NoError(t, it.Err())

	assert.Equal(t, uint32(2), r.DocFreq(model.Term{Field: "body", Token: "rust"}))

	// Absent term and absent field are valid not-found outcomes.
	_, ok = r.TermPostings(model.Term{Field: "body", Token: "zig"})
	assert.False(t, ok)
	_, ok = r.TermPostings(model.Term{Field: "title", Token: "rust"})
	assert.False(t, ok)
}

func TestWriter_AddAfterFlush(t *testing.T) {
	w := NewWriter(CompressionNone)
	_, err := w.Add(doc("body", "a"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Flush(context.Background(), 1, &buf))

	_, err = w.Add(doc("body", "b"))
	assert.ErrorIs(t, err, ErrInvalidState)

	err = w.Flush(context.Background(), 1, &buf)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOpen_SameSegmentTwice(t *testing.T) {
	w := NewWriter(CompressionNone)
	_, err := w.Add(doc("body", "alpha", "beta"))
	require.NoError(t, err)
	_, err = w.Add(doc("body", "alpha"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Flush(context.Background(), 1, &buf))

	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "seg", buf.Bytes()))

	read := func() []uint32 {
		blob, err := store.Open(context.Background(), "seg")
		require.NoError(t, err)
		r, err := Open(blob)
		require.NoError(t, err)
		defer r.Close()

		it, ok := r.TermPostings(model.Term{Field: "body", Token: "alpha"})
		require.True(t, ok)
		var docs []uint32
		for it.Next() {
			docs = append(docs, it.Doc())
		}
		require.NoError(t, it.Err())
		return docs
	}

	assert.Equal(t, read(), read())
}

func TestOpen_DetectsCorruption(t *testing.T) {
	w := NewWriter(CompressionNone)
	_, err := w.Add(doc("body", "alpha", "beta", "gamma"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.Flush(context.Background(), 1, &buf))
	data := buf.Bytes()

	open := func(b []byte) error {
		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Put(context.Background(), "seg", b))
		blob, err := store.Open(context.Background(), "seg")
		require.NoError(t, err)
		_, err = Open(blob)
		return err
	}

	// Pristine data opens fine.
	require.NoError(t, open(data))

	// Flip one body byte: checksum must catch it.
	bad := append([]byte(nil), data...)
	bad[len(bad)-1] ^= 0x01
	assert.ErrorIs(t, open(bad), ErrCorrupt)

	// Bad magic.
	bad = append([]byte(nil), data...)
	bad[0] ^= 0xff
	assert.ErrorIs(t, open(bad), ErrCorrupt)

	// Unsupported version.
	bad = append([]byte(nil), data...)
	bad[4] = 0xee
	assert.ErrorIs(t, open(bad), ErrIncompatibleFormat)

	// Truncated file.
	assert.ErrorIs(t, open(data[:len(data)-4]), ErrCorrupt)
}

func TestWriter_Compression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionS2, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			w := NewWriter(c)
			for i := 0; i < 100; i++ {
				_, err := w.Add(doc("body", fmt.Sprintf("token%03d", i), "shared"))
				require.NoError(t, err)
			}

			r, err := Open(flushToBlob(t, w, 1))
			require.NoError(t, err)
			defer r.Close()

			it, ok := r.TermPostings(model.Term{Field: "body", Token: "shared"})
			require.True(t, ok)
			var n int
			for it.Next() {
				n++
			}
			require.NoError(t, it.Err())
			assert.Equal(t, 100, n)
		})
	}
}

func TestWriter_EmptySegment(t *testing.T) {
	w := NewWriter(CompressionNone)
	r, err := Open(flushToBlob(t, w, 1))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(0), r.DocCount())
	assert.Equal(t, 0, r.TermCount())
}

func TestWriter_LargePostingList(t *testing.T) {
	const n = 10_000
	w := NewWriter(CompressionS2)
	for i := 0; i < n; i++ {
		_, err := w.Add(doc("body", "shared", fmt.Sprintf("unique%d", i)))
		require.NoError(t, err)
	}

	r, err := Open(flushToBlob(t, w, 1))
	require.NoError(t, err)
	defer r.Close()

	it, ok := r.TermPostings(model.Term{Field: "body", Token: "shared"})
	require.True(t, ok)
	require.Equal(t, n, it.Count())

	var prev uint32
	var count int
	for it.Next() {
		if count > 0 {
			require.Greater(t, it.Doc(), prev)
		}
		prev = it.Doc()
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, n, count)
}
