package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/persistence"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements persistence.Backend on a single SQLite database
// file. Each collection is one row holding its full JSON payload, so a
// save replaces the collection atomically within a SQLite transaction.
//
// Table:
//
//	collections(name TEXT PRIMARY KEY, data BLOB, updated_at TEXT)
type Store struct {
	db    *sql.DB
	codec codec.Codec
}

// StoreOptions configure a SQLite store.
type StoreOptions struct {
	// Codec encodes collection payloads. Defaults to codec.Default.
	Codec codec.Codec
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string, optFns ...func(*StoreOptions)) (*Store, error) {
	opts := StoreOptions{Codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, persistence.NewErrDirectoryCreate(dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, codec: opts.Codec}, nil
}

// Load reads a collection row. A missing row returns
// persistence.ErrNotFound.
func (s *Store) Load(ctx context.Context, collection string) (persistence.Collection, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM collections WHERE name = ?", collection).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}

	var docs persistence.Collection
	if err := s.codec.Unmarshal(data, &docs); err != nil {
		return nil, persistence.NewErrLoad(collection, err)
	}
	return docs, nil
}

// Save upserts the collection row.
func (s *Store) Save(ctx context.Context, collection string, docs persistence.Collection) error {
	data, err := s.codec.Marshal(docs)
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		collection, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// Delete removes a collection row. Missing rows are ignored.
func (s *Store) Delete(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", collection); err != nil {
		return persistence.NewErrSave(collection, err)
	}
	return nil
}

// List returns the stored collection names.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM collections ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
