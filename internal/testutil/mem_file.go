// mem_file.go - In-memory file handle for testing
package testutil

import (
	"bytes"
	"io"
)

// MemFile is an in-memory upload.File implementation.
type MemFile struct {
	FileName     string
	ContentType  string
	Data         []byte
	DeclaredSize int64 // overrides len(Data) when > 0, for oversize tests
}

func (f *MemFile) Name() string     { return f.FileName }
func (f *MemFile) MIMEType() string { return f.ContentType }

func (f *MemFile) Size() int64 {
	if f.DeclaredSize > 0 {
		return f.DeclaredSize
	}
	return int64(len(f.Data))
}

func (f *MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// TextFile builds a plain-text MemFile.
func TextFile(name, content string) *MemFile {
	return &MemFile{FileName: name, ContentType: "text/plain", Data: []byte(content)}
}

// PNGFile builds an image/png MemFile with the given payload.
func PNGFile(name string, data []byte) *MemFile {
	return &MemFile{FileName: name, ContentType: "image/png", Data: data}
}
