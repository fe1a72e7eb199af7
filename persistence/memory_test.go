package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo/document"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, "users", sampleDocs()))

	loaded, err := m.Load(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	names, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)

	require.NoError(t, m.Delete(ctx, "users"))
	_, err = m.Load(ctx, "users")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoresDeepCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	docs := sampleDocs()
	require.NoError(t, m.Save(ctx, "users", docs))

	// Mutating the saved input does not reach the stored state.
	docs["u1"]["age"] = document.Int(99)

	loaded, err := m.Load(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, document.Int(25), loaded["u1"]["age"])

	// Mutating a loaded copy does not either.
	loaded["u1"]["age"] = document.Int(77)
	again, err := m.Load(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, document.Int(25), again["u1"]["age"])
}
