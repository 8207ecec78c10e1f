// Package minio implements blobstore.BlobStore for MinIO and other
// S3-compatible object storage endpoints.
package minio
