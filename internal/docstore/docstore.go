// Package docstore defines the document-store abstraction used for file metadata
// and the shared aggregate document.
//
// A document is a flat map of typed fields addressed by a "collection/id" path.
// Implementations: Firestore REST, PostgreSQL (jsonb) and an in-memory map.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Kind is the wire type of a field value.
type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindTimestamp Kind = "timestamp"
)

// Value is a single typed field value.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	Time time.Time
}

// String builds a string field.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Integer builds an integer field.
func Integer(n int64) Value { return Value{Kind: KindInteger, Int: n} }

// Timestamp builds a timestamp field, normalized to UTC.
func Timestamp(t time.Time) Value { return Value{Kind: KindTimestamp, Time: t.UTC()} }

// Document is a flat map of typed fields.
type Document map[string]Value

// String returns the string field or "" when absent or of another kind.
func (d Document) String(name string) string {
	v, ok := d[name]
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// Int returns the integer field or 0 when absent or of another kind.
func (d Document) Int(name string) int64 {
	v, ok := d[name]
	if !ok || v.Kind != KindInteger {
		return 0
	}
	return v.Int
}

// Time returns the timestamp field and whether it was present.
func (d Document) Time(name string) (time.Time, bool) {
	v, ok := d[name]
	if !ok || v.Kind != KindTimestamp {
		return time.Time{}, false
	}
	return v.Time, true
}

// Store is a remote document database.
type Store interface {
	// Get returns the document at path or ErrNotFound.
	Get(ctx context.Context, path string) (Document, error)
	// Patch creates or replaces the document at path.
	Patch(ctx context.Context, path string, doc Document) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
}

// Path joins a collection and a document id.
func Path(collection, id string) string {
	return collection + "/" + id
}

// SplitPath splits "collection/id" into its parts.
func SplitPath(path string) (collection, id string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	return path[:i], path[i+1:], nil
}
