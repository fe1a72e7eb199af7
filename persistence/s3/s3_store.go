package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/persistence"
)

// Client is the subset of the S3 API the store uses. *s3.Client
// satisfies it; tests substitute a fake.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements persistence.Backend for S3. Each collection lives
// at `<prefix>/<collection>.json`.
//
// S3 object puts are atomic, so a reader never observes a partially
// written collection.
type Store struct {
	client   Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	codec    codec.Codec
}

// StoreOptions configure an S3 store.
type StoreOptions struct {
	// Prefix is prepended to all keys (e.g. "my-db/").
	Prefix string
	// Codec encodes collection payloads. Defaults to codec.Default.
	Codec codec.Codec
}

// NewStore creates a new S3 backend on an existing client.
func NewStore(client Client, bucket string, optFns ...func(*StoreOptions)) *Store {
	opts := StoreOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   opts.Prefix,
		codec:    opts.Codec,
	}
}

// NewStoreFromConfig creates a new S3 backend using the default AWS
// configuration chain (env vars, shared config, instance roles).
func NewStoreFromConfig(ctx context.Context, bucket string, optFns ...func(*StoreOptions)) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, optFns...), nil
}

func (s *Store) key(collection string) string {
	return path.Join(s.prefix, collection+".json")
}

// Load reads a collection object. A missing object returns
// persistence.ErrNotFound.
func (s *Store) Load(ctx context.Context, collection string) (persistence.Collection, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(collection)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, persistence.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, persistence.ErrNotFound
		}
		return nil, persistence.NewErrLoad(collection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}

	var docs persistence.Collection
	if err := s.codec.Unmarshal(data, &docs); err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}
	return docs, nil
}

// Save writes the collection object via the upload manager.
func (s *Store) Save(ctx context.Context, collection string, docs persistence.Collection) error {
	data, err := s.codec.Marshal(docs)
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(collection)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// Delete removes a collection object. Missing objects are ignored;
// S3 DeleteObject succeeds for absent keys.
func (s *Store) Delete(ctx context.Context, collection string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(collection)),
	})
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// List returns the collection names under the configured prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			name = strings.TrimPrefix(name, "/")
			if strings.HasSuffix(name, ".json") && !strings.Contains(name, "/") {
				names = append(names, strings.TrimSuffix(name, ".json"))
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; the underlying client is owned by the caller.
func (s *Store) Close() error { return nil }
