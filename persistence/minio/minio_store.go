package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/persistence"
	"github.com/minio/minio-go/v7"
)

// Store implements persistence.Backend for MinIO and S3-compatible
// storage. Each collection lives at `<prefix>/<collection>.json`.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	codec  codec.Codec
}

// StoreOptions configure a MinIO store.
type StoreOptions struct {
	// Prefix is prepended to all keys (e.g. "my-db/").
	Prefix string
	// Codec encodes collection payloads. Defaults to codec.Default.
	Codec codec.Codec
}

// NewStore creates a new MinIO backend on an existing client.
func NewStore(client *minio.Client, bucket string, optFns ...func(*StoreOptions)) *Store {
	opts := StoreOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: opts.Prefix,
		codec:  opts.Codec,
	}
}

func (s *Store) key(collection string) string {
	return path.Join(s.prefix, collection+".json")
}

// Load reads a collection object. A missing object returns
// persistence.ErrNotFound.
func (s *Store) Load(ctx context.Context, collection string) (persistence.Collection, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(collection), minio.GetObjectOptions{})
	if err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// GetObject is lazy; a missing key surfaces on first read.
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, persistence.ErrNotFound
		}
		return nil, persistence.NewErrLoad(collection, err)
	}

	var docs persistence.Collection
	if err := s.codec.Unmarshal(data, &docs); err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}
	return docs, nil
}

// Save writes the collection object. Object puts are atomic.
func (s *Store) Save(ctx context.Context, collection string, docs persistence.Collection) error {
	data, err := s.codec.Marshal(docs)
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key(collection), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// Delete removes a collection object. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, collection string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(collection), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil // Already gone
		}
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// List returns the collection names under the configured prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if strings.HasSuffix(name, ".json") && !strings.Contains(name, "/") {
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; the underlying client is owned by the caller.
func (s *Store) Close() error { return nil }
