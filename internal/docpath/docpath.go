// Package docpath addresses locations inside a document tree.
//
// A Path is a non-empty sequence of object member names. Resolve, Upsert and
// Remove descend the tree one segment at a time. The tree is never mutated:
// Upsert and Remove return a new root that shares every subtree they did not
// touch, so a reader holding the previous root keeps a consistent view.
package docpath

import (
	"errors"
	"strings"

	"github.com/maruel/jsondb/internal/value"
)

// ErrEmptyPath is returned when a path has no segment.
var ErrEmptyPath = errors.New("empty path")

// Path is a non-empty ordered sequence of member names.
type Path struct {
	segments []string
}

// New returns a path made of segments.
func New(segments ...string) (Path, error) {
	if len(segments) == 0 {
		return Path{}, ErrEmptyPath
	}
	return Path{segments: append([]string(nil), segments...)}, nil
}

// MustNew is like New but panics on error.
func MustNew(segments ...string) Path {
	p, err := New(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// FromValue converts a request key into a path.
//
// A string is a one-segment path. An array of strings is a multi-segment
// path. Anything else, including an empty array, is rejected.
func FromValue(v value.Value) (Path, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return New(s)
	case value.KindArray:
		segments := make([]string, 0, v.Len())
		for _, item := range v.Items() {
			s, ok := item.AsString()
			if !ok {
				return Path{}, errors.New("path segments must be strings")
			}
			segments = append(segments, s)
		}
		return New(segments...)
	case value.KindNull, value.KindBool, value.KindNumber, value.KindObject:
		return Path{}, errors.New("path must be a string or an array of strings")
	default:
		return Path{}, errors.New("path must be a string or an array of strings")
	}
}

// Segments returns a copy of the segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsZero reports whether p was not built with New.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Value returns the wire form of p: a string for a single segment, an array
// of strings otherwise.
func (p Path) Value() value.Value {
	if len(p.segments) == 1 {
		return value.String(p.segments[0])
	}
	items := make([]value.Value, len(p.segments))
	for i, s := range p.segments {
		items[i] = value.String(s)
	}
	return value.Array(items...)
}

// String joins the segments with '/' for logs and commit messages.
func (p Path) String() string {
	return strings.Join(p.segments, "/")
}
