package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// File is an opaque handle to a selected binary payload. The payload is owned
// by the caller; records reference it without copying.
type File interface {
	Name() string
	MIMEType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// diskFile is a File backed by a file on the local filesystem.
type diskFile struct {
	path     string
	name     string
	mimeType string
	size     int64
}

// FromDisk creates a File handle for a path on the local filesystem. The MIME
// type is derived from the extension, falling back to octet-stream.
func FromDisk(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	// TypeByExtension may append a charset parameter; the policy matches on
	// the bare type.
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &diskFile{
		path:     path,
		name:     filepath.Base(path),
		mimeType: mimeType,
		size:     info.Size(),
	}, nil
}

func (f *diskFile) Name() string     { return f.name }
func (f *diskFile) MIMEType() string { return f.mimeType }
func (f *diskFile) Size() int64      { return f.size }

func (f *diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
