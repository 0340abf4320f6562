// Package realtime implements the per-instance delivery core: the session
// registry, the authenticated WebSocket endpoint devices register on, the
// heartbeat monitor and the bus fan-out bridge.
//
// Alert targeting is keyed on the address a device claims at registration,
// not on anything derived from the transport. That makes address-based
// fan-out only as trustworthy as the client's honesty; it is a deliberate
// design assumption, not an oversight.
package realtime

import (
	"net"

	"github.com/gobwas/ws"
	"github.com/labstack/echo"
	"github.com/rohitksw/sw-alert-system/pkg/auth"
	log "github.com/sirupsen/logrus"
)

// Closure codes answered on a failed handshake, distinguishable by the
// client.
const (
	CloseNoCredential      ws.StatusCode = 4001
	CloseInvalidCredential ws.StatusCode = 4002
)

// Handler contains all properties to serve the realtime endpoint
type Handler struct {
	ctrl     *Controller
	verifier *auth.Verifier
}

// NewHandler create a new realtime handler
func NewHandler(ctrl *Controller, verifier *auth.Verifier) *Handler {
	return &Handler{
		ctrl:     ctrl,
		verifier: verifier,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register realtime routes")
	api := e.Group("/realtime")
	api.Any("/v1", h.alertChannelHandler())
}

func (h *Handler) alertChannelHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")

		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			return err
		}

		// The gate runs before any application-level message is read. A
		// rejected connection never touches the registry.
		if err := h.verifier.Verify(token); err != nil {
			rejectConn(conn, err)
			return nil
		}

		terminateCh := make(chan struct{})
		cc := h.ctrl.NewConn(conn, terminateCh)
		defer cc.Close()

		<-terminateCh

		log.Debug("realtime: exit alert channel handler func")
		return nil
	}
}

func rejectConn(conn net.Conn, err error) {
	defer conn.Close()

	status, reason := CloseInvalidCredential, "invalid credential"
	if err == auth.ErrNoCredential {
		status, reason = CloseNoCredential, "missing credential"
	}

	body := ws.NewCloseFrameBody(status, reason)
	if werr := ws.WriteFrame(conn, ws.NewCloseFrame(body)); werr != nil {
		log.Errorf("realtime: failed to write close frame: %v", werr)
	}

	log.WithFields(log.Fields{
		"status": status,
	}).Warn("realtime: connection rejected: ", err)
}
