// Package blobstore abstracts the storage of immutable index blobs.
//
// A segment, once flushed, is a single immutable blob; tombstone files
// and manifests are small blobs replaced atomically. The interfaces here
// expose exactly that contract: ranged reads over immutable blobs plus
// atomic publication of new ones.
//
// Implementations:
//
//   - LocalStore: local directory, mmap-backed reads, temp-file+rename writes
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3, ranged GETs and multipart uploads
//   - minio.Store: S3-compatible object storage
package blobstore
