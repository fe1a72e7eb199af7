package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/docgo/codec"
)

// LocalOptions configure a Local backend.
type LocalOptions struct {
	// Codec encodes collection payloads. Defaults to codec.Default.
	Codec codec.Codec
	// Compression selects the on-disk compression. Defaults to none.
	Compression Compression
	// PrettyPrint writes indented JSON. Ignored when compression is
	// enabled, where readability is moot.
	PrettyPrint bool
}

// Local persists each collection as `<dir>/<collection>.json`, a JSON
// object keyed by document id.
//
// Writes go to a temporary file in the same directory followed by a
// rename, so a crashed save leaves the previous file intact and a load
// always sees the last fully written file.
type Local struct {
	dir  string
	opts LocalOptions
}

// NewLocal creates a Local backend rooted at dir, creating the
// directory when missing.
func NewLocal(dir string, optFns ...func(*LocalOptions)) (*Local, error) {
	opts := LocalOptions{
		Codec:       codec.Default,
		Compression: CompressionNone,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ErrDirectoryCreate{Dir: dir, cause: err}
	}
	return &Local{dir: dir, opts: opts}, nil
}

// Dir returns the backing directory.
func (l *Local) Dir() string { return l.dir }

func (l *Local) filename(collection string) string {
	return filepath.Join(l.dir, collection+".json"+l.opts.Compression.Ext())
}

// Load reads a collection file. A missing file returns ErrNotFound.
func (l *Local) Load(_ context.Context, collection string) (Collection, error) {
	data, comp, err := l.readAnyVariant(collection)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, NewErrLoad(collection, err)
	}
	raw, err := comp.Decompress(data)
	if err != nil {
		return nil, NewErrLoad(collection, err)
	}
	var docs Collection
	if err := l.opts.Codec.Unmarshal(raw, &docs); err != nil {
		return nil, NewErrLoad(collection, err)
	}
	return docs, nil
}

// readAnyVariant tries the configured filename first, then the other
// compression variants, so changing the compression option does not
// orphan existing files.
func (l *Local) readAnyVariant(collection string) ([]byte, Compression, error) {
	order := []Compression{l.opts.Compression, CompressionNone, CompressionZstd, CompressionLZ4}
	var firstErr error
	for i, comp := range order {
		if i > 0 && comp == l.opts.Compression {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, collection+".json"+comp.Ext()))
		if err == nil {
			return data, comp, nil
		}
		if firstErr == nil || errors.Is(firstErr, os.ErrNotExist) && !errors.Is(err, os.ErrNotExist) {
			firstErr = err
		}
	}
	return nil, CompressionNone, firstErr
}

// Save writes the collection file atomically (temp file + rename).
func (l *Local) Save(_ context.Context, collection string, docs Collection) error {
	var (
		raw []byte
		err error
	)
	if l.opts.PrettyPrint && l.opts.Compression == CompressionNone {
		raw, err = l.opts.Codec.MarshalIndent(docs)
	} else {
		raw, err = l.opts.Codec.Marshal(docs)
	}
	if err != nil {
		return NewErrSave(collection, err)
	}
	data, err := l.opts.Compression.Compress(raw)
	if err != nil {
		return NewErrSave(collection, err)
	}

	target := l.filename(collection)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return NewErrSave(collection, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return NewErrSave(collection, err)
	}
	return nil
}

// Delete removes the collection's file; missing files are ignored.
func (l *Local) Delete(_ context.Context, collection string) error {
	for _, comp := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		err := os.Remove(filepath.Join(l.dir, collection+".json"+comp.Ext()))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return NewErrSave(collection, err)
		}
	}
	return nil
}

// List returns the collection names found in the directory.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, comp := range []Compression{CompressionZstd, CompressionLZ4, CompressionNone} {
			suffix := ".json" + comp.Ext()
			if strings.HasSuffix(name, suffix) {
				names = append(names, strings.TrimSuffix(name, suffix))
				break
			}
		}
	}
	return names, nil
}

// Close is a no-op for local files.
func (l *Local) Close() error { return nil }
