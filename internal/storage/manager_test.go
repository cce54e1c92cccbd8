// manager_test.go - Tests for the ingest storage layer
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createTestStore(t *testing.T, maxPartSize int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), maxPartSize)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewDiskStore(t *testing.T) {
	t.Run("creates storage directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "uploads")

		if _, err := NewDiskStore(dir, 1024); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Expected storage directory to be created")
		}
	})
}

func TestDiskStore_Save(t *testing.T) {
	t.Run("saves part under collision-resistant name", func(t *testing.T) {
		store := createTestStore(t, 1024)

		info, err := store.Save("file", "report.pdf", strings.NewReader("%PDF"))
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Name != "report.pdf" {
			t.Errorf("Expected original name, got %s", info.Name)
		}
		if !strings.HasPrefix(info.StoredName, "file-") || !strings.HasSuffix(info.StoredName, ".pdf") {
			t.Errorf("Unexpected stored name %s", info.StoredName)
		}
		if info.Size != 4 {
			t.Errorf("Expected size 4, got %d", info.Size)
		}

		path, err := store.Path(info.ID)
		if err != nil {
			t.Fatalf("Path failed: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Stored file unreadable: %v", err)
		}
		if string(data) != "%PDF" {
			t.Errorf("Stored content mismatch: %q", data)
		}
	})

	t.Run("names do not collide", func(t *testing.T) {
		store := createTestStore(t, 1024)

		a, err := store.Save("file", "x.txt", strings.NewReader("a"))
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		b, err := store.Save("file", "x.txt", strings.NewReader("b"))
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		if a.StoredName == b.StoredName {
			t.Errorf("Stored names collided: %s", a.StoredName)
		}
	})

	t.Run("accepts part at exact ceiling", func(t *testing.T) {
		store := createTestStore(t, 8)

		info, err := store.Save("file", "a.bin", strings.NewReader("12345678"))
		if err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if info.Size != 8 {
			t.Errorf("Expected size 8, got %d", info.Size)
		}
	})

	t.Run("rejects oversize part and leaves nothing on disk", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewDiskStore(dir, 8)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		_, err = store.Save("file", "big.bin", strings.NewReader("123456789"))
		if !errors.Is(err, ErrPartTooLarge) {
			t.Fatalf("Expected ErrPartTooLarge, got %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected empty directory, found %d entries", len(entries))
		}
	})
}

func TestDiskStore_List(t *testing.T) {
	store := createTestStore(t, 1024)

	first, _ := store.Save("file", "first.txt", strings.NewReader("1"))
	time.Sleep(5 * time.Millisecond)
	second, _ := store.Save("file", "second.txt", strings.NewReader("2"))

	list, err := store.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Error("Expected newest-first ordering")
	}

	limited, _ := store.List(1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(limited))
	}
}

func TestDiskStore_Delete(t *testing.T) {
	store := createTestStore(t, 1024)

	info, _ := store.Save("file", "gone.txt", strings.NewReader("x"))
	path, _ := store.Path(info.ID)

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed from disk")
	}
	if _, err := store.Get(info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown id, got %v", err)
	}
}
