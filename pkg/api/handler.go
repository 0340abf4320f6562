package api

import (
	"github.com/labstack/echo"
	"github.com/rohitksw/sw-alert-system/pkg/publish"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Handler contains all properties to serve the API
type Handler struct {
	gateway *publish.Gateway
	store   storage.Interface
}

// NewHandler create a new API handler
func NewHandler(gateway *publish.Gateway, store storage.Interface) *Handler {
	return &Handler{
		gateway: gateway,
		store:   store,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")
	api.POST("/alerts", h.handleTriggerAlert)

	api.GET("/devices", h.handleFetchDevices)
	api.GET("/devices/:deviceId", h.handleGetDeviceByDeviceID)
}
