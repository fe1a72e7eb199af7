package docgo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/engine"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/persistence"
	"github.com/hupe1980/docgo/query"
)

func newTestDB(t *testing.T, optFns ...Option) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	return db
}

func seed(t *testing.T, db *DB) {
	t.Helper()

	ctx := context.Background()
	for _, m := range []map[string]any{
		{"id": "u1", "name": "ann", "age": 25, "city": "berlin"},
		{"id": "u2", "name": "bob", "age": 30, "city": "hamburg"},
		{"id": "u3", "name": "cai", "age": 35, "city": "berlin"},
		{"id": "u4", "name": "dee", "age": 28, "city": "munich"},
	} {
		_, err := db.Insert(ctx, "users", m)
		require.NoError(t, err)
	}
}

func TestInsertAndFind(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Find(ctx, "users", map[string]any{"age": map[string]any{"$gt": 28}}, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// A document without an id gets one generated.
	stored, err := db.Insert(ctx, "users", map[string]any{"name": "eve"})
	require.NoError(t, err)
	id, ok := stored.ID()
	require.True(t, ok)
	assert.NotEmpty(t, id)

	n, err := db.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	_, err := db.Insert(ctx, "users", map[string]any{"id": "u1", "name": "imposter"})
	require.Error(t, err)

	var dup *engine.ErrDuplicateID
	assert.ErrorAs(t, err, &dup)
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	doc, err := db.FindOne(ctx, "users", map[string]any{"name": "bob"})
	require.NoError(t, err)
	assert.Equal(t, document.String("u2"), doc["id"])

	_, err = db.FindOne(ctx, "users", map[string]any{"name": "zed"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	doc, err := db.FindByID(ctx, "users", "u3")
	require.NoError(t, err)
	assert.Equal(t, document.String("cai"), doc["name"])

	_, err = db.FindByID(ctx, "users", "u9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	n, err := db.Update(ctx, "users", map[string]any{"city": "berlin"}, map[string]any{"active": true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ann, err := db.FindByID(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, document.Bool(true), ann["active"])

	n, err = db.Delete(ctx, "users", map[string]any{"name": "dee"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPersistenceAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)
	_, err = db.Insert(ctx, "users", map[string]any{"id": "u1", "name": "ann"})
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	// A second handle over the same directory sees the data.
	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close(ctx)

	doc, err := db2.FindByID(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, document.String("ann"), doc["name"])
}

func TestUniqueIndexSurface(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	require.NoError(t, db.CreateIndex(ctx, "users", "name", index.Config{Unique: true}))

	_, err := db.Insert(ctx, "users", map[string]any{"name": "ann"})
	require.Error(t, err)

	var uc *ErrUniqueConstraint
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, "name", uc.Field)

	// Dropping the index lifts the constraint.
	db.DropIndex("users", "name")
	_, err = db.Insert(ctx, "users", map[string]any{"name": "ann"})
	assert.NoError(t, err)
}

func TestSchemaOption(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, WithSchema("users", document.Schema{
		"age": document.FieldTypeInt,
	}))

	_, err := db.Insert(ctx, "users", map[string]any{"age": 30})
	require.NoError(t, err)

	_, err = db.Insert(ctx, "users", map[string]any{"age": "old"})
	assert.Error(t, err)
}

func TestUpdateValidatorOption(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, WithUpdateValidator("accounts", func(oldDoc, newDoc document.Document) error {
		if v, ok := newDoc["balance"].AsInt64(); ok && v < 0 {
			return engine.NewErrDomainValidation("accounts", "balance must not go negative", nil)
		}
		return nil
	}))

	_, err := db.Insert(ctx, "accounts", map[string]any{"id": "a1", "balance": 100})
	require.NoError(t, err)

	_, err = db.Update(ctx, "accounts", map[string]any{"id": "a1"}, map[string]any{"balance": -5})
	require.Error(t, err)

	var dv *engine.ErrDomainValidation
	assert.ErrorAs(t, err, &dv)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	t.Run("Commit", func(t *testing.T) {
		tx := db.Begin(ctx)
		require.NoError(t, tx.Insert("users", document.MustFromMap(map[string]any{"id": "u5", "name": "eve"})))

		// Buffered, not yet visible.
		_, err := db.FindByID(ctx, "users", "u5")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, tx.Commit(ctx))
		_, err = db.FindByID(ctx, "users", "u5")
		assert.NoError(t, err)
	})

	t.Run("Rollback", func(t *testing.T) {
		tx := db.Begin(ctx)
		_, err := db.Insert(ctx, "users", map[string]any{"id": "u6", "name": "mal"})
		require.NoError(t, err)

		require.NoError(t, tx.Rollback(ctx))
		_, err = db.FindByID(ctx, "users", "u6")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Lookup", func(t *testing.T) {
		tx := db.Begin(ctx)
		got, err := db.Tx(tx.ID())
		require.NoError(t, err)
		assert.Same(t, tx, got)
		require.NoError(t, tx.Rollback(ctx))

		_, err = db.Tx("missing")
		assert.Error(t, err)
	})
}

func TestDropAndCollections(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	_, err := db.Insert(ctx, "orders", map[string]any{"id": "o1"})
	require.NoError(t, err)
	require.NoError(t, db.SaveAll(ctx))

	names, err := db.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, names)

	require.NoError(t, db.Drop(ctx, "orders"))
	require.NoError(t, db.Drop(ctx, "orders")) // idempotent

	names, err = db.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var deleted []string
	db.Subscribe(engine.ObserverFuncs{
		Delete: func(collection, id string) { deleted = append(deleted, id) },
	})

	_, err := db.Insert(ctx, "users", map[string]any{"id": "u1"})
	require.NoError(t, err)
	_, err = db.Delete(ctx, "users", map[string]any{"id": "u1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, deleted)
}

func TestOpenWithBackend(t *testing.T) {
	ctx := context.Background()
	db := OpenWith(persistence.NewMemory())
	defer db.Close(ctx)

	_, err := db.Insert(ctx, "users", map[string]any{"id": "u1"})
	require.NoError(t, err)

	n, err := db.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClosedDB(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	_, err = db.Insert(ctx, "users", map[string]any{"id": "u1"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAutosaveOption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(dir, WithAutosave(0)) // default interval, flushed on Close
	require.NoError(t, err)

	_, err = db.Insert(ctx, "users", map[string]any{"id": "u1"})
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	_, err = filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)

	db2, err := Open(dir)
	require.NoError(t, err)
	defer db2.Close(ctx)

	n, err := db2.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFindWithOptions(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seed(t, db)

	docs, err := db.Find(ctx, "users", nil, &query.FindOptions{
		Sort:  []query.SortKey{{Field: "age", Desc: true}},
		Skip:  1,
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, document.Int(30), docs[0]["age"])
	assert.Equal(t, document.Int(28), docs[1]["age"])
}
