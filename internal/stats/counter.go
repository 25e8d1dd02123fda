// Package stats maintains the shared aggregate document (file count, total bytes)
// and serves it on /summary.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
)

// Aggregate is the single shared counters document.
type Aggregate struct {
	TotalFiles int64
	TotalSize  int64
	// LastUpdated is nil until the first successful adjustment.
	LastUpdated *time.Time
}

// Counter performs read-modify-write adjustments of the aggregate document.
//
// Adjust is not atomic: two concurrent calls can read the same values and one
// increment is lost. The aggregate is a display counter and every later adjustment
// rewrites it from whatever it reads, so drift is tolerated rather than locked out.
type Counter struct {
	store docstore.Store
	path  string
	now   func() time.Time
}

// NewCounter creates a Counter for the document at path ("collection/id").
func NewCounter(store docstore.Store, path string) *Counter {
	return &Counter{store: store, path: path, now: time.Now}
}

// Read returns the current aggregate. A missing document or field reads as zero.
func (c *Counter) Read(ctx context.Context) (Aggregate, error) {
	doc, err := c.store.Get(ctx, c.path)
	if errors.Is(err, docstore.ErrNotFound) {
		return Aggregate{}, nil
	}
	if err != nil {
		return Aggregate{}, fmt.Errorf("read aggregate: %w", err)
	}

	agg := Aggregate{
		TotalFiles: doc.Int("totalFiles"),
		TotalSize:  doc.Int("totalSize"),
	}
	if ts, ok := doc.Time("lastUpdated"); ok {
		agg.LastUpdated = &ts
	}
	observe(agg)
	return agg, nil
}

// Adjust adds the deltas to the aggregate, clamping each total at zero, and
// writes the result back stamped with the current time.
func (c *Counter) Adjust(ctx context.Context, deltaBytes, deltaCount int64) (Aggregate, error) {
	cur, err := c.Read(ctx)
	if err != nil {
		return Aggregate{}, fmt.Errorf("adjust aggregate: %w", err)
	}

	now := c.now().UTC()
	next := Aggregate{
		TotalFiles:  max(0, cur.TotalFiles+deltaCount),
		TotalSize:   max(0, cur.TotalSize+deltaBytes),
		LastUpdated: &now,
	}

	err = c.store.Patch(ctx, c.path, docstore.Document{
		"totalFiles":  docstore.Integer(next.TotalFiles),
		"totalSize":   docstore.Integer(next.TotalSize),
		"lastUpdated": docstore.Timestamp(now),
	})
	if err != nil {
		return Aggregate{}, fmt.Errorf("adjust aggregate: %w", err)
	}

	observe(next)
	return next, nil
}
