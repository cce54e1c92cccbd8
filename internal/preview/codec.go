// Package preview generates displayable representations of uploaded files,
// keyed by MIME category. All environment-specific decode logic lives here,
// isolated from the upload state machine.
package preview

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Source is the readable payload a codec decodes. upload.File satisfies it.
type Source interface {
	Name() string
	MIMEType() string
	Open() (io.ReadCloser, error)
}

// Preview is the rendered representation of a file. URI is either a
// self-contained data URI or an ephemeral reference URI; Text is populated
// only for plain-text files.
type Preview struct {
	URI  string
	Text string
}

// Codec produces a Preview for one file.
type Codec interface {
	Generate(src Source) (Preview, error)
}

// Registry selects codecs by MIME category and owns the object-URL store
// backing reference URIs.
type Registry struct {
	urls *URLStore
}

// NewRegistry creates a Registry with an empty object-URL store.
func NewRegistry() *Registry {
	return &Registry{urls: NewURLStore()}
}

// ForMIME returns the codec for a MIME type:
// image/* decodes to a data URI, application/pdf and audio/video produce a
// reference URI, text/plain produces a reference URI plus decoded text, and
// anything else yields no preview.
func (r *Registry) ForMIME(mimeType string) Codec {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ImageCodec{}
	case mimeType == "application/pdf":
		return ReferenceCodec{urls: r.urls}
	case mimeType == "text/plain":
		return TextCodec{urls: r.urls}
	case strings.HasPrefix(mimeType, "audio/"), strings.HasPrefix(mimeType, "video/"):
		return ReferenceCodec{urls: r.urls}
	default:
		return NullCodec{}
	}
}

// Generate dispatches to the codec for the source's MIME type.
func (r *Registry) Generate(src Source) (Preview, error) {
	return r.ForMIME(src.MIMEType()).Generate(src)
}

// Revoke releases the object URL backing a reference URI, if any.
func (r *Registry) Revoke(uri string) {
	r.urls.Revoke(uri)
}

// Resolve returns the source behind a reference URI.
func (r *Registry) Resolve(uri string) (Source, bool) {
	return r.urls.Resolve(uri)
}

// ImageCodec decodes image contents into a self-contained data URI.
type ImageCodec struct{}

func (ImageCodec) Generate(src Source) (Preview, error) {
	data, err := readAll(src)
	if err != nil {
		return Preview{}, err
	}
	uri := fmt.Sprintf("data:%s;base64,%s", src.MIMEType(), base64.StdEncoding.EncodeToString(data))
	return Preview{URI: uri}, nil
}

// ReferenceCodec produces an ephemeral reference URI without decoding.
type ReferenceCodec struct {
	urls *URLStore
}

func (c ReferenceCodec) Generate(src Source) (Preview, error) {
	return Preview{URI: c.urls.Create(src)}, nil
}

// TextCodec produces a reference URI and the decoded text content.
type TextCodec struct {
	urls *URLStore
}

func (c TextCodec) Generate(src Source) (Preview, error) {
	data, err := readAll(src)
	if err != nil {
		return Preview{}, err
	}
	return Preview{URI: c.urls.Create(src), Text: string(data)}, nil
}

// NullCodec yields no preview. Selected for types that should not occur
// post-validation.
type NullCodec struct{}

func (NullCodec) Generate(Source) (Preview, error) {
	return Preview{}, nil
}

func readAll(src Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.Name(), err)
	}
	return data, nil
}
