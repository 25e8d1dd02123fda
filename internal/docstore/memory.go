package docstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	docs  map[string]Document
	mutex sync.RWMutex
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]Document{}}
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (m *MemoryStore) Patch(ctx context.Context, path string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.docs[path] = clone(doc)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.docs, path)
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.docs)
}

func clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
