// manager_test.go - Tests for the upload manager state machine
package upload_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/file-uploader/backend/internal/testutil"
	"github.com/file-uploader/backend/internal/upload"
)

// emissions records every snapshot delivered to the listener.
type emissions struct {
	mu    sync.Mutex
	snaps [][]models.FileRecord
}

func (e *emissions) listen(records []models.FileRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snaps = append(e.snaps, records)
}

func (e *emissions) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.snaps)
}

func (e *emissions) last() []models.FileRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snaps) == 0 {
		return nil
	}
	return e.snaps[len(e.snaps)-1]
}

func (e *emissions) all() [][]models.FileRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]models.FileRecord(nil), e.snaps...)
}

func multiPolicy() upload.Policy {
	p := upload.DefaultPolicy()
	p.AllowMultiple = true
	return p
}

func newTestManager(t *testing.T, policy upload.Policy, tr upload.Transport) (*upload.Manager, *emissions) {
	t.Helper()
	m := upload.NewManager(policy, tr)
	m.SetSettleDelay(50 * time.Millisecond)
	e := &emissions{}
	m.SetListener(e.listen)
	return m, e
}

// waitFor polls until the condition holds or the timeout expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func allDisplayed(m *upload.Manager, want int) func() bool {
	return func() bool {
		records := m.Records()
		if len(records) != want {
			return false
		}
		for _, rec := range records {
			if rec.State != models.RecordDisplayed {
				return false
			}
		}
		return true
	}
}

func TestManager_SubmitSinglePNG(t *testing.T) {
	m, e := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.PNGFile("photo.png", make([]byte, 1024*1024)))

	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	records := m.Records()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.State != models.RecordDisplayed {
		t.Errorf("Expected state displayed, got %s", rec.State)
	}
	if !rec.Displayed {
		t.Error("Expected displayed flag to be set")
	}
	if rec.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", rec.Progress)
	}
	if !strings.HasPrefix(rec.Preview, "data:image/png;base64,") {
		t.Errorf("Expected data URI preview, got %q", rec.Preview)
	}
	if rec.TextContent != "" {
		t.Errorf("Expected no text content for an image, got %q", rec.TextContent)
	}

	if last := e.last(); len(last) != 1 {
		t.Errorf("Expected last emission to hold 1 record, got %d", len(last))
	}
}

func TestManager_DuplicateNameRejected(t *testing.T) {
	m, _ := newTestManager(t, multiPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("a.txt", "first"))
	waitFor(t, allDisplayed(m, 1), "first record to be displayed")

	m.Submit(testutil.TextFile("a.txt", "second"))

	records := m.Records()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record after duplicate submit, got %d", len(records))
	}

	errMsg, _ := m.Messages()
	if errMsg != `File "a.txt" already uploaded!` {
		t.Errorf("Unexpected duplicate message: %q", errMsg)
	}
}

func TestManager_DuplicateWithinOneBatch(t *testing.T) {
	m, _ := newTestManager(t, multiPolicy(), &testutil.MockTransport{})

	m.Submit(
		testutil.TextFile("a.txt", "first"),
		testutil.TextFile("a.txt", "second"),
		testutil.TextFile("b.txt", "third"),
	)

	// The first a.txt and b.txt are admitted; the second a.txt is skipped
	// without aborting the batch.
	records := m.Records()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Name != "a.txt" || records[1].Name != "b.txt" {
		t.Errorf("Unexpected record order: %s, %s", records[0].Name, records[1].Name)
	}
}

func TestManager_UnsupportedType(t *testing.T) {
	m, e := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(&testutil.MemFile{FileName: "archive.zip", ContentType: "application/zip", Data: []byte("zip")})

	if len(m.Records()) != 0 {
		t.Fatal("Expected no record for an unsupported type")
	}
	if e.count() != 0 {
		t.Error("Expected no emission when nothing was admitted")
	}

	errMsg, _ := m.Messages()
	want := "Unsupported file type! Please upload a PNG, JPEG, PDF, MP3, WAV, MP4, DOC, or TXT file."
	if errMsg != want {
		t.Errorf("Unexpected message: %q", errMsg)
	}
}

func TestManager_OversizeFile(t *testing.T) {
	policy := upload.DefaultPolicy()
	policy.MaxByteSize = 5 * 1024 * 1024
	m, _ := newTestManager(t, policy, &testutil.MockTransport{})

	m.Submit(&testutil.MemFile{
		FileName:     "big.png",
		ContentType:  "image/png",
		DeclaredSize: 6 * 1024 * 1024,
	})

	if len(m.Records()) != 0 {
		t.Fatal("Expected no record for an oversize file")
	}

	errMsg, _ := m.Messages()
	if errMsg != "File size exceeds the maximum limit of 5 MB!" {
		t.Errorf("Unexpected message: %q", errMsg)
	}
}

func TestManager_ProgressMonotonic(t *testing.T) {
	tr := &testutil.MockTransport{
		// Out-of-order ticks: late lower values must be dropped.
		Ticks: []int64{30, 10, 60, 50, 100},
	}
	m, e := newTestManager(t, multiPolicy(), tr)

	m.Submit(testutil.TextFile("notes.txt", strings.Repeat("x", 100)))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	prev := -1
	for _, snap := range e.all() {
		if len(snap) != 1 {
			continue
		}
		p := snap[0].Progress
		if p < prev {
			t.Fatalf("Progress regressed from %d to %d", prev, p)
		}
		if p > 100 {
			t.Fatalf("Progress exceeded 100: %d", p)
		}
		prev = p
		// Progress must hit 100 no later than the uploaded transition.
		if snap[0].State == models.RecordUploaded && p != 100 {
			t.Fatalf("Uploaded with progress %d", p)
		}
	}
	if prev != 100 {
		t.Errorf("Final progress is %d, want 100", prev)
	}
}

type transportFunc func(ctx context.Context, f upload.File, onProgress upload.ProgressFunc) (string, error)

func (fn transportFunc) Send(ctx context.Context, f upload.File, onProgress upload.ProgressFunc) (string, error) {
	return fn(ctx, f, onProgress)
}

func TestManager_TransportFailureIsIsolated(t *testing.T) {
	tr := transportFunc(func(ctx context.Context, f upload.File, onProgress upload.ProgressFunc) (string, error) {
		if f.Name() == "bad.txt" {
			return "", errors.New("connection reset")
		}
		onProgress(f.Size(), f.Size())
		return "Files uploaded successfully!", nil
	})
	m, _ := newTestManager(t, multiPolicy(), tr)

	m.Submit(
		testutil.TextFile("bad.txt", "doomed"),
		testutil.TextFile("good.txt", "fine"),
	)

	waitFor(t, func() bool {
		records := m.Records()
		if len(records) != 2 {
			return false
		}
		return records[0].State == models.RecordFailed &&
			records[1].State == models.RecordDisplayed
	}, "one failure and one display")

	records := m.Records()
	if !strings.Contains(records[0].Error, "connection reset") {
		t.Errorf("Expected failure reason on the record, got %q", records[0].Error)
	}
	if records[0].Preview != "" {
		t.Error("Preview must never be generated for a failed transfer")
	}
	if records[1].Error != "" {
		t.Errorf("Failure leaked into the other record: %q", records[1].Error)
	}
}

func TestManager_Remove(t *testing.T) {
	m, e := newTestManager(t, multiPolicy(), &testutil.MockTransport{})

	m.Submit(
		testutil.TextFile("a.txt", "aaa"),
		testutil.TextFile("b.txt", "bbb"),
	)
	waitFor(t, allDisplayed(m, 2), "both records to be displayed")

	m.Remove(0)

	records := m.Records()
	if len(records) != 1 {
		t.Fatalf("Expected 1 record after removal, got %d", len(records))
	}
	if records[0].Name != "b.txt" {
		t.Errorf("Expected b.txt to remain, got %s", records[0].Name)
	}
	if last := e.last(); len(last) != 1 || last[0].Name != "b.txt" {
		t.Error("Removal was not re-emitted")
	}
}

func TestManager_RemoveOutOfRange(t *testing.T) {
	m, e := newTestManager(t, multiPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("a.txt", "aaa"))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	before := e.count()
	m.Remove(5)
	m.Remove(-1)

	if len(m.Records()) != 1 {
		t.Fatal("Out-of-range removal must not change the collection")
	}
	if e.count() != before+2 {
		t.Error("Out-of-range removal must still re-emit")
	}
}

func TestManager_RemoveLastResetsInput(t *testing.T) {
	m, _ := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	resets := 0
	m.SetInputReset(func() { resets++ })

	m.Submit(testutil.TextFile("a.txt", "aaa"))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	m.Remove(0)

	if len(m.Records()) != 0 {
		t.Fatal("Expected empty collection")
	}
	if resets != 1 {
		t.Errorf("Expected 1 input reset, got %d", resets)
	}
}

func TestManager_RemoveMidFlightIsSafe(t *testing.T) {
	tr := &testutil.MockTransport{Delay: 30 * time.Millisecond}
	m, e := newTestManager(t, multiPolicy(), tr)

	m.Submit(testutil.TextFile("slow.txt", "zzz"))
	m.Remove(0)

	// Let the in-flight pipeline run to completion; it must not resurrect
	// the removed record.
	time.Sleep(400 * time.Millisecond)

	if len(m.Records()) != 0 {
		t.Fatal("Removed record reappeared after its pipeline completed")
	}
	for _, snap := range e.all() {
		for _, rec := range snap {
			if rec.Name == "slow.txt" && rec.State == models.RecordDisplayed {
				t.Fatal("Removed record was emitted as displayed")
			}
		}
	}
}

func TestManager_SingleModeReplacesCollection(t *testing.T) {
	m, _ := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("a.txt", "aaa"))
	waitFor(t, allDisplayed(m, 1), "first record to be displayed")

	m.Submit(testutil.PNGFile("b.png", []byte{1, 2, 3}))
	waitFor(t, allDisplayed(m, 1), "replacement record to be displayed")

	records := m.Records()
	if len(records) != 1 || records[0].Name != "b.png" {
		t.Fatalf("Expected collection to contain only b.png, got %+v", records)
	}
}

func TestManager_MessagesClearAfterSettle(t *testing.T) {
	m, _ := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(&testutil.MemFile{FileName: "x.zip", ContentType: "application/zip"})

	errMsg, _ := m.Messages()
	if errMsg == "" {
		t.Fatal("Expected an error message")
	}

	waitFor(t, func() bool {
		e, s := m.Messages()
		return e == "" && s == ""
	}, "messages to clear")
}

func TestManager_NewerMessageSupersedesClear(t *testing.T) {
	m, _ := newTestManager(t, multiPolicy(), &testutil.MockTransport{})
	m.SetSettleDelay(80 * time.Millisecond)

	m.Submit(&testutil.MemFile{FileName: "x.zip", ContentType: "application/zip"})
	time.Sleep(50 * time.Millisecond)
	m.Submit(&testutil.MemFile{FileName: "big.png", ContentType: "image/png", DeclaredSize: 99 * 1024 * 1024})

	// The first message's timer fires now; the second message must survive it.
	time.Sleep(60 * time.Millisecond)
	errMsg, _ := m.Messages()
	if !strings.Contains(errMsg, "File size exceeds") {
		t.Errorf("Second message was cleared early: %q", errMsg)
	}

	waitFor(t, func() bool {
		e, _ := m.Messages()
		return e == ""
	}, "second message to clear")
}

func TestManager_TextFilePopulatesContent(t *testing.T) {
	m, _ := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("readme.txt", "hello world"))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	rec := m.Records()[0]
	if rec.TextContent != "hello world" {
		t.Errorf("Expected decoded text content, got %q", rec.TextContent)
	}
	if !strings.HasPrefix(rec.Preview, "blob:") {
		t.Errorf("Expected reference URI preview, got %q", rec.Preview)
	}
	if _, ok := m.Previews().Resolve(rec.Preview); !ok {
		t.Error("Reference URI must resolve while the record exists")
	}
}

func TestManager_RemoveRevokesReferenceURI(t *testing.T) {
	m, _ := newTestManager(t, multiPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("readme.txt", "hello"))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	uri := m.Records()[0].Preview
	m.Remove(0)

	if _, ok := m.Previews().Resolve(uri); ok {
		t.Error("Reference URI must be revoked on removal")
	}
}

func TestManager_ProgressBarSettles(t *testing.T) {
	m, _ := newTestManager(t, upload.DefaultPolicy(), &testutil.MockTransport{})

	m.Submit(testutil.TextFile("a.txt", "aaa"))
	waitFor(t, allDisplayed(m, 1), "record to be displayed")

	waitFor(t, func() bool {
		records := m.Records()
		return len(records) == 1 && records[0].HideProgressBar
	}, "progress bar to settle")
}
