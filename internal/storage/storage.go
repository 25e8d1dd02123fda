// Package storage defines the interface for object storage operations.
// Two upload capabilities exist: backends that accept bytes directly and hand back
// an identifier (MinIO / any S3 provider), and backends that first reserve an
// identifier and then accept bytes against it (video library API).
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Locator addresses a stored object.
type Locator struct {
	Backend string
	// Library is the bucket or video library holding the object.
	Library string
	// Key is the object identifier inside Library; it doubles as the file id.
	Key string
	// URL is the public playback/access URL.
	URL string
}

// Object is the payload handed to a backend.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage is the part every backend implements.
type Storage interface {
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, loc Locator) error
	// Exists reports whether the object is present.
	Exists(ctx context.Context, loc Locator) (bool, error)
	// Locate rebuilds the locator of an object from its key alone.
	Locate(key string) Locator
}

// DirectUploader stores bytes in one call and returns the assigned locator.
type DirectUploader interface {
	Storage
	Put(ctx context.Context, obj Object) (Locator, error)
}

// TwoPhaseUploader reserves an identifier first, then uploads bytes against it.
type TwoPhaseUploader interface {
	Storage
	Reserve(ctx context.Context, name string) (Locator, error)
	Upload(ctx context.Context, loc Locator, obj Object) error
}

// NewObjectID returns a locally generated, timestamp-prefixed identifier.
func NewObjectID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
