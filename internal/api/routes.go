// routes.go - Route registration helpers
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions SessionManager
	Logger   *slog.Logger
	Version  string
	Endpoint string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Panel  PanelHandler
	Stream ViewStreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Endpoint),
		Panel:  NewPanelHandler(deps.Sessions, deps.Logger),
		Stream: NewViewStreamHandler(deps.Sessions, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	panels := apiGroup.Group("/panels")
	panels.POST("", handlers.Panel.HandleCreatePanel)
	panels.GET("/:id", handlers.Panel.HandleGetPanel)
	panels.DELETE("/:id", handlers.Panel.HandleDeletePanel)
	panels.POST("/:id/drag", handlers.Panel.HandleDrag)
	panels.POST("/:id/drop", handlers.Panel.HandleDrop)
	panels.POST("/:id/pick", handlers.Panel.HandlePick)
	panels.POST("/:id/upload", handlers.Panel.HandleUpload)
	panels.GET("/:id/download", handlers.Panel.HandleDownload)
	panels.GET("/:id/result/msgpack", handlers.Panel.HandleResultMsgpack)
	panels.GET("/:id/ws", handlers.Stream.HandleViewStream)
}
