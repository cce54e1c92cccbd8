package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ProgressFunc receives transfer progress ticks. total is the full payload
// size in bytes; loaded is the number of bytes sent so far.
type ProgressFunc func(loaded, total int64)

// Transport sends one file's bytes to the ingest endpoint. Implementations
// block until the transfer succeeds or fails, invoking onProgress as bytes
// move. The returned ack is the endpoint's acknowledgement message.
type Transport interface {
	Send(ctx context.Context, f File, onProgress ProgressFunc) (ack string, err error)
}

// HTTPTransport uploads files as multipart/form-data POST requests, matching
// the ingest endpoint's wire contract.
type HTTPTransport struct {
	Endpoint string // e.g. http://localhost:3000/api/upload
	Client   *http.Client
}

// FormFieldName is the multipart field the ingest endpoint reads parts from.
const FormFieldName = "file"

type uploadAck struct {
	Message string `json:"message"`
}

// Send streams the file to the endpoint under the "file" field. Progress is
// reported as the multipart body is consumed by the request.
func (t *HTTPTransport) Send(ctx context.Context, f File, onProgress ProgressFunc) (string, error) {
	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(FormFieldName, f.Name())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		counted := &progressReader{r: src, total: f.Size(), fn: onProgress}
		if _, err := io.Copy(part, counted); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("endpoint rejected upload: status %d: %s", resp.StatusCode, body)
	}

	var ack uploadAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("decoding acknowledgement: %w", err)
	}

	return ack.Message, nil
}

// progressReader counts bytes as they are read and reports them upstream.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	fn     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.fn != nil {
			p.fn(p.loaded, p.total)
		}
	}
	return n, err
}
