package upload

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/file-uploader/backend/internal/preview"
	"github.com/google/uuid"
)

// SettleDelay is how long transient messages stay visible, and how long the
// progress bar lingers after a record reaches the displayed state.
const SettleDelay = time.Second

// Listener receives a snapshot of the record collection after every mutation:
// admission, progress update, preview completion, removal. It is invoked on
// the mutating goroutine and must not call back into the Manager.
type Listener func(records []models.FileRecord)

// record pairs the observable snapshot state with the opaque file handle the
// pipeline reads from.
type record struct {
	models.FileRecord
	file File
}

// Manager owns the ordered collection of file records. It validates
// candidates, runs the per-record transfer+preview pipeline, and re-emits the
// collection to the registered listener after every state transition.
type Manager struct {
	mu         sync.Mutex
	policy     Policy
	transport  Transport
	codecs     *preview.Registry
	records    []*record
	listener   Listener
	resetInput func()

	errorMessage   string
	successMessage string
	msgSeq         int

	settle time.Duration
}

// NewManager creates a Manager that uploads through the given transport.
func NewManager(policy Policy, transport Transport) *Manager {
	return &Manager{
		policy:    policy,
		transport: transport,
		codecs:    preview.NewRegistry(),
		settle:    SettleDelay,
	}
}

// SetSettleDelay overrides how long transient messages and the progress bar
// affordance linger.
func (m *Manager) SetSettleDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settle = d
}

// SetListener registers the single collection listener.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// SetInputReset registers the callback invoked when the last record of a
// single-select collection is removed, so the host can reset its file input.
func (m *Manager) SetInputReset(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetInput = fn
}

// Submit validates each candidate in input order and admits the survivors.
// Rejections (duplicate name, unsupported type, oversize) set a transient
// error message and skip the candidate without aborting the rest of the
// batch. Admitted records start their upload+preview pipeline asynchronously;
// Submit does not wait for them.
func (m *Manager) Submit(files ...File) {
	if len(files) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorMessage = ""
	m.successMessage = ""

	// A new single-file selection replaces the prior one.
	if !m.policy.AllowMultiple {
		m.clearAllLocked()
	}

	admitted := 0
	for _, f := range files {
		if m.hasNameLocked(f.Name()) {
			m.setErrorLocked(fmt.Sprintf("File \"%s\" already uploaded!", f.Name()))
			continue
		}

		if msg, ok := m.policy.Validate(f.MIMEType(), f.Size()); !ok {
			m.setErrorLocked(msg)
			continue
		}

		rec := &record{
			FileRecord: models.FileRecord{
				ID:       uuid.New().String(),
				Name:     f.Name(),
				MIMEType: f.MIMEType(),
				Size:     f.Size(),
				State:    models.RecordPending,
			},
			file: f,
		}
		m.records = append(m.records, rec)
		admitted++

		go m.runPipeline(rec)
	}

	if admitted > 0 {
		m.emitLocked()
	}
}

// Remove deletes the record at index. Out-of-range indices are a no-op. The
// collection is re-emitted either way. When the collection empties in
// single-select mode the input-reset callback fires.
func (m *Manager) Remove(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index >= 0 && index < len(m.records) {
		m.codecs.Revoke(m.records[index].Preview)
		m.records = append(m.records[:index], m.records[index+1:]...)

		if !m.policy.AllowMultiple && len(m.records) == 0 && m.resetInput != nil {
			m.resetInput()
		}
	}

	m.emitLocked()
}

// Records returns a snapshot of the current collection.
func (m *Manager) Records() []models.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Messages returns the current transient error and success messages.
func (m *Manager) Messages() (errorMessage, successMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorMessage, m.successMessage
}

// Policy returns the manager's validation policy.
func (m *Manager) Policy() Policy {
	return m.policy
}

// Previews exposes the codec registry, letting hosts resolve reference URIs.
func (m *Manager) Previews() *preview.Registry {
	return m.codecs
}

// runPipeline drives one record through transfer and preview generation. The
// record may be removed from the collection mid-flight; every step tolerates
// that by checking membership before mutating.
func (m *Manager) runPipeline(rec *record) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Upload %s] PANIC recovered: %v\n", rec.ID[:8], r)
			m.failRecord(rec, fmt.Sprintf("upload panicked: %v", r))
		}
	}()

	m.mu.Lock()
	if m.containsLocked(rec) {
		rec.State = models.RecordUploading
	}
	m.mu.Unlock()

	// Phase 1: transfer.
	_, err := m.transport.Send(context.Background(), rec.file, func(loaded, total int64) {
		m.updateProgress(rec, loaded, total)
	})
	if err != nil {
		fmt.Printf("[Upload %s] transfer failed: %v\n", rec.ID[:8], err)
		m.failRecord(rec, fmt.Sprintf("Upload of \"%s\" failed: %v", rec.Name, err))
		return
	}

	m.mu.Lock()
	if !m.containsLocked(rec) {
		m.mu.Unlock()
		return
	}
	rec.Progress = 100
	rec.State = models.RecordUploaded
	m.emitLocked()
	m.mu.Unlock()

	// Phase 2: preview generation, keyed by MIME type. Decoding happens
	// outside the lock.
	pv, err := m.codecs.Generate(rec.file)
	if err != nil {
		// The transfer already succeeded; show the record without a preview.
		fmt.Printf("[Upload %s] Warning: preview generation failed: %v\n", rec.ID[:8], err)
	}

	m.mu.Lock()
	if !m.containsLocked(rec) {
		m.codecs.Revoke(pv.URI)
		m.mu.Unlock()
		return
	}
	rec.Preview = pv.URI
	rec.TextContent = pv.Text
	// PreviewReady collapses into Displayed as a single observable transition.
	rec.State = models.RecordDisplayed
	rec.Displayed = true
	m.successMessage = fmt.Sprintf("File \"%s\" uploaded successfully!", rec.Name)
	m.scheduleClearLocked()
	m.emitLocked()
	m.mu.Unlock()

	m.settleAfterDisplay(rec)
}

// settleAfterDisplay retires the progress bar affordance one settle delay
// after the record is displayed, then re-emits once.
func (m *Manager) settleAfterDisplay(rec *record) {
	m.mu.Lock()
	delay := m.settle
	m.mu.Unlock()

	go func() {
		time.Sleep(delay)

		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.containsLocked(rec) {
			return
		}
		rec.HideProgressBar = true
		m.emitLocked()
	}()
}

// updateProgress applies one transport progress tick. Progress is clamped to
// [0,100] and monotonic: late ticks reporting a lower value are dropped.
func (m *Manager) updateProgress(rec *record, loaded, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.containsLocked(rec) || total <= 0 {
		return
	}

	p := int(math.Round(float64(loaded) / float64(total) * 100))
	if p > 100 {
		p = 100
	}
	if p <= rec.Progress {
		return
	}

	rec.Progress = p
	m.emitLocked()
}

// failRecord marks a record failed and stops its pipeline. The failure never
// affects other in-flight records.
func (m *Manager) failRecord(rec *record, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.containsLocked(rec) {
		return
	}

	rec.State = models.RecordFailed
	rec.Error = msg
	m.setErrorLocked(msg)
	m.emitLocked()
}

func (m *Manager) hasNameLocked(name string) bool {
	for _, r := range m.records {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (m *Manager) containsLocked(rec *record) bool {
	for _, r := range m.records {
		if r == rec {
			return true
		}
	}
	return false
}

func (m *Manager) clearAllLocked() {
	for _, r := range m.records {
		m.codecs.Revoke(r.Preview)
	}
	m.records = nil
}

func (m *Manager) snapshotLocked() []models.FileRecord {
	snapshot := make([]models.FileRecord, len(m.records))
	for i, r := range m.records {
		snapshot[i] = r.FileRecord
	}
	return snapshot
}

func (m *Manager) emitLocked() {
	if m.listener != nil {
		m.listener(m.snapshotLocked())
	}
}

func (m *Manager) setErrorLocked(msg string) {
	m.errorMessage = msg
	m.scheduleClearLocked()
}

// scheduleClearLocked clears both transient messages after the settle delay,
// unless a newer message supersedes them first.
func (m *Manager) scheduleClearLocked() {
	m.msgSeq++
	seq := m.msgSeq
	delay := m.settle

	go func() {
		time.Sleep(delay)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.msgSeq == seq {
			m.errorMessage = ""
			m.successMessage = ""
		}
	}()
}
