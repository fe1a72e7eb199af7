package docgo

import (
	"time"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/engine"
	"github.com/hupe1980/docgo/persistence"
)

type options struct {
	backend          persistence.Backend
	codec            codec.Codec
	logger           *Logger
	autosave         bool
	autosaveInterval time.Duration
	prettyPrint      bool
	compression      persistence.Compression
	schemas          map[string]document.Schema
	validators       map[string]engine.UpdateValidator
}

// Option configures database constructor behavior.
type Option func(*options)

// WithBackend replaces the default local-file backend. When set, the
// dir argument of Open is ignored along with the file-level options
// (codec, compression, pretty-print), which then belong to the backend.
func WithBackend(backend persistence.Backend) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithCodec configures the codec used for collection files.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithAutosave enables periodic background flushing of dirty
// collections. interval <= 0 uses engine.DefaultAutosaveInterval.
func WithAutosave(interval time.Duration) Option {
	return func(o *options) {
		o.autosave = true
		o.autosaveInterval = interval
	}
}

// WithPrettyPrint writes indented collection files, trading file size
// for diffability.
func WithPrettyPrint() Option {
	return func(o *options) {
		o.prettyPrint = true
	}
}

// WithCompression selects the on-disk compression for collection files.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithSchema validates documents of a collection against a schema on
// insert and update.
func WithSchema(collection string, schema document.Schema) Option {
	return func(o *options) {
		o.schemas[collection] = schema
	}
}

// WithUpdateValidator installs a domain validation hook run before any
// update to the collection is applied.
func WithUpdateValidator(collection string, validate engine.UpdateValidator) Option {
	return func(o *options) {
		o.validators[collection] = validate
	}
}
