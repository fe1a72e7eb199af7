package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hupe1980/docgo/document"
)

// TxState is the lifecycle state of a transaction.
type TxState string

const (
	// TxPending accepts operations.
	TxPending TxState = "pending"
	// TxCommitted is terminal; the buffered operations were applied.
	TxCommitted TxState = "committed"
	// TxRolledBack is terminal; the snapshots were restored.
	TxRolledBack TxState = "rolled_back"
)

type opKind int

const (
	opInsert opKind = iota
	opUpdate
	opDelete
	opDrop
)

// op is one buffered mutation, replayed at commit time.
type op struct {
	kind       opKind
	collection string
	doc        document.Document
	query      document.Document
	patch      document.Document
}

// Coordinator creates and tracks transactions over one store.
//
// Transactions take no locks: operations buffered on a Tx do not block
// direct store calls, and direct store calls are not covered by the
// transaction's snapshot. Running concurrent transactions over the same
// collections is the caller's responsibility.
type Coordinator struct {
	mu     sync.Mutex
	store  *Store
	logger *slog.Logger
	txs    map[string]*Tx
}

// NewCoordinator creates a coordinator for the given store.
func NewCoordinator(store *Store) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: store.logger,
		txs:    make(map[string]*Tx),
	}
}

// Begin starts a pending transaction. Every collection resident at this
// moment is deep-copied as the rollback point; collections loaded later
// are outside the transaction's snapshot.
func (c *Coordinator) Begin(ctx context.Context) *Tx {
	tx := &Tx{
		id:        uuid.NewString(),
		state:     TxPending,
		snapshots: c.store.snapshotResident(),
		coord:     c,
	}

	c.mu.Lock()
	c.txs[tx.id] = tx
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "transaction started", "tx", tx.id)
	return tx
}

// Get returns a tracked transaction by id.
func (c *Coordinator) Get(id string) (*Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.txs[id]
	if !ok {
		return nil, &ErrTxNotFound{ID: id}
	}
	return tx, nil
}

func (c *Coordinator) discard(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.txs, id)
}

// Tx buffers mutations until commit. No store state changes before
// Commit; reads through the store observe the pre-transaction state.
type Tx struct {
	mu        sync.Mutex
	id        string
	state     TxState
	ops       []op
	snapshots map[string]*collection
	coord     *Coordinator
}

// ID returns the transaction id.
func (tx *Tx) ID() string { return tx.id }

// State returns the current lifecycle state.
func (tx *Tx) State() TxState {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	return tx.state
}

func (tx *Tx) buffer(o op) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxPending {
		return &ErrTxNotPending{ID: tx.id, State: tx.state}
	}
	tx.ops = append(tx.ops, o)
	return nil
}

// Insert buffers an insert of doc into the collection.
func (tx *Tx) Insert(collection string, doc document.Document) error {
	return tx.buffer(op{kind: opInsert, collection: collection, doc: doc.Clone()})
}

// Update buffers an update: patch merged over every document matching
// the equality query.
func (tx *Tx) Update(collection string, q, patch document.Document) error {
	return tx.buffer(op{kind: opUpdate, collection: collection, query: q.Clone(), patch: patch.Clone()})
}

// Delete buffers a delete of every document matching the equality query.
func (tx *Tx) Delete(collection string, q document.Document) error {
	return tx.buffer(op{kind: opDelete, collection: collection, query: q.Clone()})
}

// Drop buffers a drop of the collection.
func (tx *Tx) Drop(collection string) error {
	return tx.buffer(op{kind: opDrop, collection: collection})
}

// Commit replays the buffered operations in order through the ordinary
// store paths and persists the result. Any failure, replay or save,
// triggers an automatic rollback before the error is re-raised.
func (tx *Tx) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxPending {
		return &ErrTxNotPending{ID: tx.id, State: tx.state}
	}

	if err := tx.replay(ctx); err != nil {
		if rbErr := tx.rollbackLocked(ctx); rbErr != nil {
			return fmt.Errorf("commit failed (rollback also failed: %v): %w", rbErr, err)
		}
		return fmt.Errorf("commit failed, rolled back: %w", err)
	}

	if err := tx.coord.store.SaveAll(ctx); err != nil {
		if rbErr := tx.rollbackLocked(ctx); rbErr != nil {
			return fmt.Errorf("commit failed (rollback also failed: %v): %w", rbErr, err)
		}
		return fmt.Errorf("commit failed, rolled back: %w", err)
	}

	tx.state = TxCommitted
	tx.coord.discard(tx.id)
	tx.coord.logger.DebugContext(ctx, "transaction committed", "tx", tx.id, "ops", len(tx.ops))
	return nil
}

func (tx *Tx) replay(ctx context.Context) error {
	store := tx.coord.store
	for _, o := range tx.ops {
		var err error
		switch o.kind {
		case opInsert:
			_, err = store.Insert(ctx, o.collection, o.doc)
		case opUpdate:
			_, err = store.Update(ctx, o.collection, o.query, o.patch)
		case opDelete:
			_, err = store.Delete(ctx, o.collection, o.query)
		case opDrop:
			err = store.Drop(ctx, o.collection)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Rollback restores every snapshotted collection verbatim, rebuilds
// their indexes and persists the restored state. Buffered operations
// are discarded.
func (tx *Tx) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxPending {
		return &ErrTxNotPending{ID: tx.id, State: tx.state}
	}
	return tx.rollbackLocked(ctx)
}

func (tx *Tx) rollbackLocked(ctx context.Context) error {
	store := tx.coord.store
	if err := store.restore(tx.snapshots); err != nil {
		return err
	}
	if err := store.SaveAll(ctx); err != nil {
		return err
	}

	tx.state = TxRolledBack
	tx.coord.discard(tx.id)
	tx.coord.logger.DebugContext(ctx, "transaction rolled back", "tx", tx.id)
	return nil
}
