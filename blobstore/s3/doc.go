// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Segments are immutable, so they map cleanly onto objects: flushed
// segments are uploaded once via multipart upload and read back with
// ranged GETs. Manifests and the CURRENT pointer rely on S3's strong
// read-after-write consistency for overwrites.
package s3
