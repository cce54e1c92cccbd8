// file_info.go - Metadata for files persisted by the ingest endpoint
package models

import "time"

// StoredFile describes a file the ingest endpoint has written to storage.
type StoredFile struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	StoredName string    `json:"storedName" msgpack:"storedName"`
	Size       int64     `json:"size" msgpack:"size"`
	StoredAt   time.Time `json:"storedAt" msgpack:"storedAt"`
}
