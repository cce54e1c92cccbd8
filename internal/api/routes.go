// routes.go - Route registration helpers
package api

import (
	"github.com/file-uploader/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Store             storage.Store
	Hub               *StatusHub
	Version           string
	AllowFileDeletion bool
}

// Handlers holds all handler instances.
type Handlers struct {
	Health HealthHandler
	Ingest IngestHandler
	Hub    *StatusHub

	allowFileDeletion bool
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	hub := deps.Hub
	if hub == nil {
		hub = NewStatusHub()
	}

	return &Handlers{
		Health:            NewHealthHandler(deps.Version),
		Ingest:            NewIngestHandler(deps.Store, hub),
		Hub:               hub,
		allowFileDeletion: deps.AllowFileDeletion,
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	apiGroup := e.Group("/api")
	apiGroup.POST("/upload", handlers.Ingest.HandleUpload)
	apiGroup.GET("/files/recent", handlers.Ingest.HandleRecentFiles)
	apiGroup.GET("/files/recent/msgpack", handlers.Ingest.HandleRecentFilesMsgpack)

	if handlers.allowFileDeletion {
		apiGroup.DELETE("/files/:id", handlers.Ingest.HandleDeleteFile)
	}

	apiGroup.GET("/ws/status", handlers.Hub.HandleStatusSocket)
}

// SetupMiddleware configures common middleware.
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
