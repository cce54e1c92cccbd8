// mock_store.go - Mock storage implementation for testing
package testutil

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/file-uploader/backend/internal/storage"
)

// MockStore implements storage.Store in memory for handler tests.
type MockStore struct {
	mu       sync.RWMutex
	files    map[string]*models.StoredFile
	fileData map[string][]byte

	// MaxPartSize, when > 0, makes Save reject larger parts with
	// storage.ErrPartTooLarge.
	MaxPartSize int64
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		files:    make(map[string]*models.StoredFile),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStore) Save(field, name string, r io.Reader) (*models.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if m.MaxPartSize > 0 && int64(len(data)) > m.MaxPartSize {
		return nil, storage.ErrPartTooLarge
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := generateTestID()
	info := &models.StoredFile{
		ID:         id,
		Name:       name,
		StoredName: fmt.Sprintf("%s-%s", field, id),
		Size:       int64(len(data)),
		StoredAt:   time.Now(),
	}

	m.files[id] = info
	m.fileData[id] = data
	return info, nil
}

func (m *MockStore) Get(id string) (*models.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return info, nil
}

func (m *MockStore) List(limit int) ([]*models.StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []*models.StoredFile
	for _, info := range m.files {
		files = append(files, info)
		if limit > 0 && len(files) >= limit {
			break
		}
	}
	return files, nil
}

func (m *MockStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return storage.ErrNotFound
	}

	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStore) Path(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", storage.ErrNotFound
	}
	return "/mock/path/" + id, nil
}

// Ensure MockStore implements storage.Store
var _ storage.Store = (*MockStore)(nil)

// Test helper methods

// AddFile adds a file directly to the mock.
func (m *MockStore) AddFile(id, name string, data []byte) *models.StoredFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := &models.StoredFile{
		ID:         id,
		Name:       name,
		StoredName: "file-" + id,
		Size:       int64(len(data)),
		StoredAt:   time.Now(),
	}
	m.files[id] = info
	m.fileData[id] = data
	return info
}

// FileCount returns the number of stored files.
func (m *MockStore) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

var (
	testIDCounter int
	testIDMutex   sync.Mutex
)

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
