package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/persistence"
)

func TestTxCommitReplaysOperations(t *testing.T) {
	ctx := context.Background()
	backend := persistence.NewMemory()
	s := NewStore(backend)
	seedUsers(t, s)

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)
	assert.Equal(t, TxPending, tx.State())

	require.NoError(t, tx.Insert("users", doc(map[string]any{"id": "u5", "name": "eve", "age": 41})))
	require.NoError(t, tx.Update("users", doc(map[string]any{"name": "ann"}), doc(map[string]any{"age": 26})))
	require.NoError(t, tx.Delete("users", doc(map[string]any{"name": "cai"})))

	// Nothing applied before commit.
	n, err := s.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, TxCommitted, tx.State())

	n, err = s.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // +1 insert, -1 delete

	ann, err := s.FindByID(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, document.Int(26), ann["age"])

	_, err = s.FindByID(ctx, "users", "u3")
	assert.ErrorIs(t, err, ErrNotFound)

	// Commit persisted the result.
	saved, err := backend.Load(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, saved, 4)
}

func TestTxRollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	backend := persistence.NewMemory()
	s := NewStore(backend)
	seedUsers(t, s)
	require.NoError(t, s.SaveAll(ctx))

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)

	// Mutations applied directly while the transaction is pending.
	_, err := s.Insert(ctx, "users", doc(map[string]any{"id": "u9", "name": "mal"}))
	require.NoError(t, err)
	_, err = s.Delete(ctx, "users", doc(map[string]any{"name": "ann"}))
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, TxRolledBack, tx.State())

	// The pre-transaction state is back, in memory and on disk.
	docs, err := s.Find(ctx, "users", nil, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	_, err = s.FindByID(ctx, "users", "u9")
	assert.ErrorIs(t, err, ErrNotFound)

	ann, err := s.FindByID(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, document.Int(25), ann["age"])

	saved, err := backend.Load(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, saved, 4)
}

func TestTxRollbackRebuildsIndexes(t *testing.T) {
	ctx := context.Background()
	s := NewStore(persistence.NewMemory())

	_, err := s.Insert(ctx, "users", doc(map[string]any{"id": "u1", "email": "a@example.com"}))
	require.NoError(t, err)
	require.NoError(t, s.CreateIndex(ctx, "users", "email", index.Config{Unique: true}))

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)

	_, err = s.Delete(ctx, "users", doc(map[string]any{"id": "u1"}))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	// u1 is back; its unique value must be taken again.
	_, err = s.Insert(ctx, "users", doc(map[string]any{"email": "a@example.com"}))
	var uc *index.ErrUniqueConstraint
	require.ErrorAs(t, err, &uc)
}

func TestTxCommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore(persistence.NewMemory())
	seedUsers(t, s)

	require.NoError(t, s.CreateIndex(ctx, "users", "name", index.Config{Unique: true}))

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)

	// First op applies cleanly, second collides with the unique index.
	require.NoError(t, tx.Insert("users", doc(map[string]any{"id": "u5", "name": "eve"})))
	require.NoError(t, tx.Insert("users", doc(map[string]any{"id": "u6", "name": "ann"})))

	err := tx.Commit(ctx)
	require.Error(t, err)

	var uc *index.ErrUniqueConstraint
	assert.ErrorAs(t, err, &uc)
	assert.Equal(t, TxRolledBack, tx.State())

	// The partially applied first insert was rolled back too.
	_, err = s.FindByID(ctx, "users", "u5")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestTxCommitSaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := newFailingBackend()
	s := NewStore(backend)
	seedUsers(t, s)
	require.NoError(t, s.SaveAll(ctx))

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)
	require.NoError(t, tx.Insert("users", doc(map[string]any{"id": "u5", "name": "eve"})))

	backend.saveErr = errors.New("disk full")
	err := tx.Commit(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// The in-memory state was restored even though persisting the
	// rollback failed along with the commit.
	backend.saveErr = nil
	_, err = s.FindByID(ctx, "users", "u5")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTxTerminalStates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(persistence.NewMemory())
	coord := NewCoordinator(s)

	t.Run("CommittedIsTerminal", func(t *testing.T) {
		tx := coord.Begin(ctx)
		require.NoError(t, tx.Commit(ctx))

		var np *ErrTxNotPending
		require.ErrorAs(t, tx.Commit(ctx), &np)
		assert.Equal(t, TxCommitted, np.State)
		require.ErrorAs(t, tx.Rollback(ctx), &np)
		require.ErrorAs(t, tx.Insert("users", doc(map[string]any{"x": 1})), &np)
	})

	t.Run("RolledBackIsTerminal", func(t *testing.T) {
		tx := coord.Begin(ctx)
		require.NoError(t, tx.Rollback(ctx))

		var np *ErrTxNotPending
		require.ErrorAs(t, tx.Commit(ctx), &np)
		assert.Equal(t, TxRolledBack, np.State)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := coord.Get("nope")
		var nf *ErrTxNotFound
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "nope", nf.ID)
	})

	t.Run("GetTracksPendingOnly", func(t *testing.T) {
		tx := coord.Begin(ctx)
		got, err := coord.Get(tx.ID())
		require.NoError(t, err)
		assert.Same(t, tx, got)

		require.NoError(t, tx.Commit(ctx))
		_, err = coord.Get(tx.ID())
		assert.Error(t, err)
	})
}

func TestTxSnapshotCoversResidentOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore(persistence.NewMemory())
	seedUsers(t, s)

	coord := NewCoordinator(s)
	tx := coord.Begin(ctx)

	// A collection first touched after Begin is outside the snapshot.
	_, err := s.Insert(ctx, "audit", doc(map[string]any{"id": "a1"}))
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))

	_, err = s.FindByID(ctx, "audit", "a1")
	assert.NoError(t, err)
}
