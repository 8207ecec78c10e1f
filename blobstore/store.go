package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction over the storage of immutable data blobs
// (segments, tombstone files, manifests). Implementations must make Put
// atomic: a reader never observes a partially written blob.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a blob for streaming writes. The blob becomes
	// visible to readers only after Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put atomically writes a small blob in one call.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a streaming write handle.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered bytes to durable storage where supported.
	Sync() error
}

// Mappable is an optional interface for Blobs that expose their bytes
// without copying.
type Mappable interface {
	// Bytes returns the underlying byte slice, valid until Close.
	Bytes() ([]byte, error)
}

// ReadAll reads the full contents of a blob. The returned slice is
// always an independent copy, safe to use after the blob is closed;
// callers that manage the blob lifetime themselves can read the mapped
// bytes directly through Mappable.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		mapped, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		data := make([]byte, len(mapped))
		copy(data, mapped)
		return data, nil
	}
	data := make([]byte, b.Size())
	if _, err := readFullAt(b, data, 0); err != nil {
		return nil, err
	}
	return data, nil
}

func readFullAt(r io.ReaderAt, p []byte, off int64) (int, error) {
	var n int
	for n < len(p) {
		m, err := r.ReadAt(p[n:], off+int64(n))
		n += m
		if err != nil {
			if err == io.EOF && n == len(p) {
				return n, nil
			}
			return n, err
		}
	}
	return n, nil
}
