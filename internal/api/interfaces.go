// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/smart-extractor/backend/internal/session"
)

// PanelHandler handles the upload panel operations
type PanelHandler interface {
	HandleCreatePanel(c echo.Context) error
	HandleGetPanel(c echo.Context) error
	HandleDeletePanel(c echo.Context) error
	HandleDrag(c echo.Context) error
	HandleDrop(c echo.Context) error
	HandlePick(c echo.Context) error
	HandleUpload(c echo.Context) error
	HandleDownload(c echo.Context) error
	HandleResultMsgpack(c echo.Context) error
}

// ViewStreamHandler pushes panel views over WebSocket
type ViewStreamHandler interface {
	HandleViewStream(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for panel session management
// This allows mocking in tests
type SessionManager interface {
	Create() *session.State
	Get(id string) (*session.State, bool)
	Touch(id string) bool
	Delete(id string) bool
}
