package file

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ndunkgo99/Viyey-worker/internal/docstore"
	"github.com/ndunkgo99/Viyey-worker/internal/storage"
)

// memoryObjects is a DirectUploader keeping object bytes in a map.
type memoryObjects struct {
	mutex     sync.Mutex
	objects   map[string][]byte
	seq       int
	putErr    error
	deleteErr error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) Put(_ context.Context, obj storage.Object) (storage.Locator, error) {
	if m.putErr != nil {
		return storage.Locator{}, m.putErr
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return storage.Locator{}, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.seq++
	key := fmt.Sprintf("obj-%d", m.seq)
	m.objects[key] = data
	return m.Locate(key), nil
}

func (m *memoryObjects) Delete(_ context.Context, loc storage.Locator) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.objects, loc.Key)
	return nil
}

func (m *memoryObjects) Exists(_ context.Context, loc storage.Locator) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.objects[loc.Key]
	return ok, nil
}

func (m *memoryObjects) Locate(key string) storage.Locator {
	return storage.Locator{
		Backend: "memory",
		Library: "media",
		Key:     key,
		URL:     "http://objects.test/media/" + key,
	}
}

func (m *memoryObjects) count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.objects)
}

// mockTwoPhase is a testify mock of a reserve-then-upload backend.
type mockTwoPhase struct {
	mock.Mock
}

func (m *mockTwoPhase) Reserve(ctx context.Context, name string) (storage.Locator, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(storage.Locator), args.Error(1)
}

func (m *mockTwoPhase) Upload(ctx context.Context, loc storage.Locator, obj storage.Object) error {
	args := m.Called(ctx, loc, obj)
	return args.Error(0)
}

func (m *mockTwoPhase) Delete(ctx context.Context, loc storage.Locator) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *mockTwoPhase) Exists(ctx context.Context, loc storage.Locator) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *mockTwoPhase) Locate(key string) storage.Locator {
	args := m.Called(key)
	return args.Get(0).(storage.Locator)
}

// mockShortener is a testify mock of the link shortener.
type mockShortener struct {
	mock.Mock
}

func (m *mockShortener) Shorten(ctx context.Context, target string) (string, error) {
	args := m.Called(ctx, target)
	return args.String(0), args.Error(1)
}

// faultyDocs wraps a MemoryStore and fails the selected operations.
type faultyDocs struct {
	*docstore.MemoryStore
	getErr    error
	patchErr  error
	deleteErr error
}

func (f *faultyDocs) Get(ctx context.Context, path string) (docstore.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.Get(ctx, path)
}

func (f *faultyDocs) Patch(ctx context.Context, path string, doc docstore.Document) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	return f.MemoryStore.Patch(ctx, path, doc)
}

func (f *faultyDocs) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, path)
}
