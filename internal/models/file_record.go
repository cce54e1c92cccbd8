package models

// RecordState represents where a submitted file is in its lifecycle.
type RecordState string

const (
	RecordPending      RecordState = "pending"
	RecordUploading    RecordState = "uploading"
	RecordUploaded     RecordState = "uploaded"
	RecordPreviewReady RecordState = "preview-ready"
	RecordDisplayed    RecordState = "displayed"
	RecordFailed       RecordState = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s RecordState) Terminal() bool {
	return s == RecordDisplayed || s == RecordFailed
}

// FileRecord tracks the state of one submitted file. Name is unique within
// a collection; Progress is monotonically non-decreasing and reaches 100 at
// or before the uploaded state.
type FileRecord struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	MIMEType        string      `json:"mimeType"`
	Size            int64       `json:"size"`
	Progress        int         `json:"progress"`
	Preview         string      `json:"preview,omitempty"`
	TextContent     string      `json:"textContent,omitempty"`
	State           RecordState `json:"state"`
	Displayed       bool        `json:"displayed"`
	HideProgressBar bool        `json:"hideProgressBar"`
	Error           string      `json:"error,omitempty"`
}
