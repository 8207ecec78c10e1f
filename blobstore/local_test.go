package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreLifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()

	// 1. Create a blob
	blobName := "000001.seg"
	data := []byte("hello world, this is a test blob for lexgo")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())

	// Verify file exists on disk
	expectedPath := filepath.Join(tmpDir, blobName)
	_, err = os.Stat(expectedPath)
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// 3. Zero-copy full read through the Mappable fast path
	all, err := ReadAll(blob)
	require.NoError(t, err)
	require.Equal(t, data, all)

	// 4. Delete
	require.NoError(t, store.Delete(ctx, blobName))
	_, err = os.Stat(expectedPath)
	require.True(t, os.IsNotExist(err))

	// Deleting a missing blob is not an error.
	require.NoError(t, store.Delete(ctx, blobName))
}

func TestLocalStoreReadAllValidAfterClose(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("contents that must outlive the mapping")
	require.NoError(t, store.Put(ctx, "blob", data))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)

	got, err := ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	// The slice must be an independent copy: reading it after Close
	// unmapped the file has to be safe.
	assert.Equal(t, data, got)
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing.seg")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStorePutIsVisibleAtomically(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("MANIFEST-000001.json")))

	blob, err := store.Open(ctx, "CURRENT")
	require.NoError(t, err)
	content, err := ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	assert.Equal(t, "MANIFEST-000001.json", string(content))

	// Overwrite through Put repoints atomically.
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("MANIFEST-000002.json")))
	blob, err = store.Open(ctx, "CURRENT")
	require.NoError(t, err)
	content, err = ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	assert.Equal(t, "MANIFEST-000002.json", string(content))
}

func TestLocalStoreListSkipsTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "000001.seg", []byte("a")))
	require.NoError(t, store.Put(ctx, "000002.seg", []byte("b")))
	require.NoError(t, store.Put(ctx, "MANIFEST-000001.json", []byte("{}")))

	// An unclosed Create leaves a temp file that List must hide.
	w, err := store.Create(ctx, "000003.seg")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	names, err := store.List(ctx, "0000")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001.seg", "000002.seg"}, names)

	names, err = store.List(ctx, "MANIFEST-")
	require.NoError(t, err)
	assert.Equal(t, []string{"MANIFEST-000001.json"}, names)

	require.NoError(t, w.Close())
}
