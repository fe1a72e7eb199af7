// Package s3 provides an S3-backed persistence backend, plus an
// optional DynamoDB commit log for safe concurrent writers.
package s3
