package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/rohitksw/sw-alert-system/pkg/api/resource"
	"github.com/rohitksw/sw-alert-system/pkg/publish"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) handleTriggerAlert(c echo.Context) error {
	r := &resource.AlertRequest{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewAlertError("invalid request body"))
	}

	published, err := h.gateway.PublishAlert(r.IPs, r.Title, r.Message)
	if verr, ok := err.(*publish.ValidationError); ok {
		return c.JSON(http.StatusBadRequest, resource.NewAlertValidationError(verr.Missing))
	} else if err != nil {
		log.Error("api: alert publication failed: ", err)
		return c.JSON(http.StatusInternalServerError, resource.NewAlertError("internal server error"))
	}

	// published counts bus publications, not deliveries: there is no
	// acknowledgment path from devices back to the gateway.
	return c.JSON(http.StatusOK, resource.NewAlertResponse(published))
}
