// mock_transport.go - Scripted transport implementation for testing
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/file-uploader/backend/internal/upload"
)

// MockTransport implements upload.Transport with scripted progress events.
// The zero value reports five 20% ticks and succeeds.
type MockTransport struct {
	mu   sync.Mutex
	sent []string

	// Loaded values reported before completion, against total = file size.
	// When nil, five evenly spaced ticks are reported.
	Ticks []int64

	// Err, when set, is returned after the ticks have been delivered.
	Err error

	// Delay is an optional pause between ticks.
	Delay time.Duration
}

func (t *MockTransport) Send(ctx context.Context, f upload.File, onProgress upload.ProgressFunc) (string, error) {
	t.mu.Lock()
	t.sent = append(t.sent, f.Name())
	t.mu.Unlock()

	total := f.Size()
	ticks := t.Ticks
	if ticks == nil {
		for i := int64(1); i <= 5; i++ {
			ticks = append(ticks, total*i/5)
		}
	}

	for _, loaded := range ticks {
		if t.Delay > 0 {
			time.Sleep(t.Delay)
		}
		if onProgress != nil {
			onProgress(loaded, total)
		}
	}

	if t.Err != nil {
		return "", t.Err
	}
	return "Files uploaded successfully!", nil
}

// Sent returns the names of files sent so far, in order.
func (t *MockTransport) Sent() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

// Ensure MockTransport implements upload.Transport
var _ upload.Transport = (*MockTransport)(nil)
