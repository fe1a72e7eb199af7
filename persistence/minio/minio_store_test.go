package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/persistence"
)

// TestStoreIntegration requires a running MinIO instance.
// Skip if not available.
func TestStoreIntegration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-docgo"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, func(o *StoreOptions) {
		o.Prefix = "test-prefix"
	})

	docs := persistence.Collection{
		"u1": document.MustFromMap(map[string]any{"id": "u1", "name": "ann", "age": 25}),
		"u2": document.MustFromMap(map[string]any{"id": "u2", "name": "bob", "age": 30}),
	}

	// Save and load round trip
	require.NoError(t, store.Save(ctx, "users", docs))

	loaded, err := store.Load(ctx, "users")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, document.Int(25), loaded["u1"]["age"])
	assert.Equal(t, document.String("bob"), loaded["u2"]["name"])

	// Missing collections map to ErrNotFound
	_, err = store.Load(ctx, "ghosts")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	// List sees the collection
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "users")

	// Delete removes it; deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "users"))
	require.NoError(t, store.Delete(ctx, "users"))

	_, err = store.Load(ctx, "users")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}
