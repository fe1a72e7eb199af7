// Package minio provides a persistence backend for MinIO and other
// S3-compatible object stores.
package minio
