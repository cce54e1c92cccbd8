// interfaces.go - Handler interfaces
package api

import "github.com/labstack/echo/v4"

// HealthHandler serves liveness checks.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// IngestHandler serves the upload endpoint and stored-file management.
type IngestHandler interface {
	HandleUpload(c echo.Context) error
	HandleRecentFiles(c echo.Context) error
	HandleRecentFilesMsgpack(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}
