package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/google/uuid"
)

// ErrPartTooLarge is returned when a part exceeds the store's size ceiling.
var ErrPartTooLarge = errors.New("file part exceeds the maximum allowed size")

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Store defines the interface for ingest-side file storage.
type Store interface {
	Save(field, name string, r io.Reader) (*models.StoredFile, error)
	Get(id string) (*models.StoredFile, error)
	List(limit int) ([]*models.StoredFile, error)
	Delete(id string) error
	Path(id string) (string, error)
}

// DiskStore implements Store on the local filesystem. Each part is written
// under a collision-resistant name and rejected when it exceeds maxPartSize.
type DiskStore struct {
	mu          sync.RWMutex
	dir         string
	maxPartSize int64
	files       map[string]*models.StoredFile
}

// NewDiskStore creates a DiskStore rooted at dir.
func NewDiskStore(dir string, maxPartSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &DiskStore{
		dir:         dir,
		maxPartSize: maxPartSize,
		files:       make(map[string]*models.StoredFile),
	}, nil
}

// Save writes one part to disk as <field>-<unix-nano><ext>. It returns
// ErrPartTooLarge, with nothing left on disk, when the part exceeds the
// ceiling.
func (s *DiskStore) Save(field, name string, r io.Reader) (*models.StoredFile, error) {
	storedName := fmt.Sprintf("%s-%d%s", field, time.Now().UnixNano(), filepath.Ext(name))
	path := filepath.Join(s.dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	// Read one byte past the ceiling so oversize parts are detected without
	// writing the whole payload.
	size, err := io.Copy(f, io.LimitReader(r, s.maxPartSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if size > s.maxPartSize {
		os.Remove(path)
		return nil, ErrPartTooLarge
	}

	info := &models.StoredFile{
		ID:         uuid.New().String(),
		Name:       name,
		StoredName: storedName,
		Size:       size,
		StoredAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[info.ID] = info

	return info, nil
}

// Get retrieves metadata by ID.
func (s *DiskStore) Get(id string) (*models.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return info, nil
}

// List returns the most recently stored files, newest first.
func (s *DiskStore) List(limit int) ([]*models.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.StoredFile, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].StoredAt.After(list[j].StoredAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a stored file and its metadata.
func (s *DiskStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(s.dir, info.StoredName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// Path returns the absolute on-disk path of a stored file.
func (s *DiskStore) Path(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return filepath.Join(s.dir, info.StoredName), nil
}
