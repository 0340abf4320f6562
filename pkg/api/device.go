package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/rohitksw/sw-alert-system/pkg/api/resource"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
)

func (h *Handler) handleFetchDevices(c echo.Context) error {
	m, err := h.store.Devices().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewDeviceList(m))
}

func (h *Handler) handleGetDeviceByDeviceID(c echo.Context) error {
	deviceID := c.Param("deviceId")

	m, err := h.store.Devices().FindByDeviceID(deviceID)
	if err != nil && err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, err)
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewDevice(m))
}
