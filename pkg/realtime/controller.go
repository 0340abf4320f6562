package realtime

import (
	"net"
	"time"

	"github.com/rohitksw/sw-alert-system/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Controller wires accepted connections to the session registry and the
// device directory.
type Controller struct {
	registry      *Registry
	store         storage.Interface
	closeReplaced bool
}

// NewController creates a controller over the given registry and device
// directory. closeReplaced selects the displacement policy for
// re-registered device IDs.
func NewController(registry *Registry, store storage.Interface, closeReplaced bool) *Controller {
	return &Controller{
		registry:      registry,
		store:         store,
		closeReplaced: closeReplaced,
	}
}

// NewConn attaches an authenticated transport connection and starts its
// inbox and outbox workers. terminateCh is closed when the connection is
// fully torn down, releasing the hosting HTTP handler.
func (ctrl *Controller) NewConn(conn net.Conn, terminateCh chan<- struct{}) *Conn {
	c := &Conn{
		ctrl:        ctrl,
		conn:        conn,
		alive:       true,
		outboxCh:    make(chan frame, 64),
		closeCh:     make(chan struct{}),
		terminateCh: terminateCh,
	}

	go c.inboxWorker()
	go c.outboxWorker()

	return c
}

func (ctrl *Controller) upsertDevice(deviceID, ip string) {
	seenAt := time.Now().Round(time.Second).UTC()
	if err := ctrl.store.Devices().Upsert(deviceID, ip, seenAt); err != nil {
		log.WithFields(log.Fields{
			"device_id": deviceID,
			"ip":        ip,
		}).Error("realtime: device directory upsert failed: ", err)
	}
}
