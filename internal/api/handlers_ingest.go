// handlers_ingest.go - Ingest endpoint handlers
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/file-uploader/backend/internal/models"
	"github.com/file-uploader/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// UploadFieldName is the multipart field file parts arrive under.
const UploadFieldName = "file"

// UploadSuccessMessage is the acknowledgement body for a fully stored request.
const UploadSuccessMessage = "Files uploaded successfully!"

// IngestHandlerImpl implements the IngestHandler interface.
type IngestHandlerImpl struct {
	store storage.Store
	hub   *StatusHub
}

// NewIngestHandler creates a new ingest handler instance.
func NewIngestHandler(store storage.Store, hub *StatusHub) IngestHandler {
	return &IngestHandlerImpl{
		store: store,
		hub:   hub,
	}
}

// HandleUpload accepts a multipart request with one or more parts under the
// "file" field and stores each one. An oversize part rejects the whole
// request; already-stored parts of the same request are rolled back. There is
// no partial-success reporting.
func (h *IngestHandlerImpl) HandleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}

	parts := form.File[UploadFieldName]
	if len(parts) == 0 {
		return NewBadRequestError("no file parts provided", nil)
	}

	var stored []*models.StoredFile
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			h.rollback(stored)
			return NewInternalError("failed to open uploaded part", err)
		}

		info, err := h.store.Save(UploadFieldName, part.Filename, src)
		src.Close()
		if errors.Is(err, storage.ErrPartTooLarge) {
			h.rollback(stored)
			return NewPayloadTooLargeError("file size limit exceeded")
		}
		if err != nil {
			h.rollback(stored)
			return NewInternalError("failed to store file", err)
		}

		stored = append(stored, info)
	}

	if h.hub != nil {
		for _, info := range stored {
			h.hub.BroadcastStored(info)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": UploadSuccessMessage})
}

// HandleRecentFiles returns the most recently stored files as JSON.
func (h *IngestHandlerImpl) HandleRecentFiles(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleRecentFilesMsgpack returns the same snapshot msgpack-encoded for
// binary consumers.
func (h *IngestHandlerImpl) HandleRecentFilesMsgpack(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	data, err := msgpack.Marshal(files)
	if err != nil {
		return NewInternalError("failed to encode files", err)
	}

	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleDeleteFile removes a stored file.
func (h *IngestHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewBadRequestError("missing file id", nil)
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// rollback deletes parts stored earlier in a request that ultimately failed.
// Best effort: a failed delete leaves an orphan on disk.
func (h *IngestHandlerImpl) rollback(stored []*models.StoredFile) {
	for _, info := range stored {
		if err := h.store.Delete(info.ID); err != nil {
			fmt.Printf("[Ingest] rollback of %s failed: %v\n", info.StoredName, err)
		}
	}
}
