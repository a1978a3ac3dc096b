// Package storage owns the document and mirrors it to a JSON file.
//
// # Concurrency
//
// Engine serializes access with a read-write lock held for the whole
// operation. Reads run in parallel. A write computes the new root, persists
// it, and only then publishes it, all under the write lock; a failed persist
// leaves the previous root in place.
//
// # File Format
//
// A single indented JSON object, rewritten wholesale through a temp file and
// a rename on every mutation.
package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maruel/jsondb/internal/docpath"
	dberrors "github.com/maruel/jsondb/internal/errors"
	"github.com/maruel/jsondb/internal/value"
)

// Recorder is notified after each successful persist.
type Recorder interface {
	// Record is called with the backing file path and a one-line description
	// of the mutation.
	Record(ctx context.Context, file, message string) error
}

// Options configures an Engine.
type Options struct {
	// Recorder, if set, is called after every persisted mutation. Its errors
	// are logged: the mutation is already durable.
	Recorder Recorder
}

// Engine holds the document and its backing file.
type Engine struct {
	path     string
	recorder Recorder

	mu   sync.RWMutex
	root value.Value // always an object
}

// Open loads the document stored at path.
//
// A missing file is created empty. Empty or unreadable content starts an
// empty document rather than failing.
func Open(path string, opts *Options) *Engine {
	e := &Engine{path: path, root: value.EmptyObject()}
	if opts != nil {
		e.recorder = opts.Recorder
	}
	e.load()
	return e
}

// Path returns the backing file path.
func (e *Engine) Path() string {
	return e.path
}

// Get returns the value at p.
func (e *Engine) Get(ctx context.Context, p docpath.Path) (value.Value, error) {
	if p.IsZero() {
		return value.Value{}, dberrors.MalformedRequest("empty path")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := docpath.Resolve(e.root, p)
	if !ok {
		return value.Value{}, dberrors.NoSuchKey(p.String())
	}
	return v, nil
}

// Set binds p to v and persists the document.
func (e *Engine) Set(ctx context.Context, p docpath.Path, v value.Value) error {
	if p.IsZero() {
		return dberrors.MalformedRequest("empty path")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	root := docpath.Upsert(e.root, p, v)
	if err := e.persist(ctx, root, "set "+p.String()); err != nil {
		return err
	}
	e.root = root
	return nil
}

// Delete removes the member at p and persists the document.
//
// Nothing is written when p does not exist.
func (e *Engine) Delete(ctx context.Context, p docpath.Path) error {
	if p.IsZero() {
		return dberrors.MalformedRequest("empty path")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	root, removed := docpath.Remove(e.root, p)
	if !removed {
		return dberrors.NoSuchKey(p.String())
	}
	if err := e.persist(ctx, root, "delete "+p.String()); err != nil {
		return err
	}
	e.root = root
	return nil
}

// Snapshot returns the current document. The returned value is immutable and
// unaffected by later mutations.
func (e *Engine) Snapshot() value.Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.root
}

// persist writes root to the backing file. Must be called with e.mu held for
// writing.
func (e *Engine) persist(ctx context.Context, root value.Value, msg string) error {
	if err := writeFileAtomic(e.path, append(root.Indent("  "), '\n')); err != nil {
		slog.ErrorContext(ctx, "Failed to persist document", "path", e.path, "err", err)
		return dberrors.PersistenceFailure(err)
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, e.path, msg); err != nil {
			slog.WarnContext(ctx, "Failed to record history", "path", e.path, "err", err)
		}
	}
	return nil
}
