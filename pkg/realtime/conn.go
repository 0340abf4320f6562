package realtime

import (
	"encoding/json"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rohitksw/sw-alert-system/pkg/alert"
	log "github.com/sirupsen/logrus"
)

type frame struct {
	op   ws.OpCode
	data []byte
}

// Conn is one authenticated device connection. It owns the underlying
// transport exclusively: all writes go through the outbox worker and the
// inbox worker is the only reader. A Conn becomes a session once the device
// sends its registration message.
type Conn struct {
	ctrl *Controller
	conn net.Conn

	mu       sync.Mutex
	deviceID string
	addr     string
	alive    bool

	outboxCh    chan frame
	closeCh     chan struct{}
	terminateCh chan<- struct{}
	closeOnce   sync.Once
}

// Close tears the connection down: the session is removed from the
// registry, the transport is closed and the hosting handler is released.
// Safe to call from any goroutine, any number of times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.ctrl.registry.Remove(c.conn)
		close(c.closeCh)
		c.conn.Close()
		close(c.terminateCh)
	})
}

// Alive reports whether the peer answered the last liveness ping.
func (c *Conn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// Address returns the claimed network address, empty until registered.
func (c *Conn) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// DeviceID returns the registered device identifier, empty until registered.
func (c *Conn) DeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

func (c *Conn) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

func (c *Conn) clearAlive() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

// Ping enqueues a liveness ping frame for the peer.
func (c *Conn) Ping() bool {
	return c.enqueue(ws.OpPing, nil)
}

// PushAlert enqueues an alert payload as a text frame. It reports false if
// the connection is already closed or its outbox is full; delivery is
// best-effort and never retried.
func (c *Conn) PushAlert(p alert.Payload) bool {
	data, err := json.Marshal(p)
	if err != nil {
		log.Errorf("realtime: failed to marshal alert payload: %v", err)
		return false
	}
	return c.enqueue(ws.OpText, data)
}

func (c *Conn) enqueue(op ws.OpCode, data []byte) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}

	select {
	case c.outboxCh <- frame{op: op, data: data}:
		return true
	default:
		return false // Buffer is full
	}
}

func (c *Conn) inboxWorker() {
	defer c.Close()

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(c.conn, state)

	r := &wsutil.Reader{
		Source:         c.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			log.Debugf("realtime: websocket read frame error: %v", err)
			return
		}

		if h.OpCode.IsControl() {
			// On OpClose the socket was closed by the client. We can exit
			// our worker now, the deferred Close cleans up the registry.
			if h.OpCode == ws.OpClose {
				log.Debug("realtime: websocket connection closed by peer")
				return
			}

			// A pong answers the last liveness ping and keeps the session
			// out of the next sweep's kill list.
			if h.OpCode == ws.OpPong {
				c.markAlive()
			}

			if err = ch(h, r); err != nil {
				log.Errorf("realtime: websocket handle control frame error: %v", err)
				return
			}
			continue
		}

		data, err := io.ReadAll(r)
		if err != nil {
			log.Errorf("realtime: websocket read error: %v", err)
			return
		}

		c.handleMessage(data)
	}
}

func (c *Conn) outboxWorker() {
	state := ws.StateServerSide
	w := wsutil.NewWriter(c.conn, state, 0)

	for {
		select {
		case f := <-c.outboxCh:
			if err := writeFrame(c.conn, w, state, f); err != nil {
				log.Debugf("realtime: websocket write error: %v", err)
				c.Close()
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

func writeFrame(conn net.Conn, w *wsutil.Writer, state ws.State, f frame) error {
	// Control frames bypass the fragmenting writer, they must be sent as a
	// single frame.
	if f.op.IsControl() {
		return wsutil.WriteServerMessage(conn, f.op, f.data)
	}

	w.Reset(conn, state, f.op)
	if _, err := w.Write(f.data); err != nil {
		return err
	}
	return w.Flush()
}

// handleMessage processes one structured text frame from the device. Any
// message that is not a well-formed registration is logged and ignored;
// the connection stays open.
func (c *Conn) handleMessage(data []byte) {
	msg := clientMessage{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warnf("realtime: dropping malformed client message: %v", err)
		return
	}

	switch msg.Type {
	case messageTypeRegister:
		c.handleRegister(msg)
	default:
		log.Warnf("realtime: ignoring unknown client message type %q", msg.Type)
	}
}

func (c *Conn) handleRegister(msg clientMessage) {
	if msg.DeviceID == "" || msg.IP == "" {
		log.Warn("realtime: ignoring register message with missing fields")
		return
	}

	c.mu.Lock()
	prevID := c.deviceID
	c.deviceID = msg.DeviceID
	c.addr = msg.IP
	c.mu.Unlock()

	// A connection re-registering under a new device ID gives up its old
	// registry key, one entry per connection.
	if prevID != "" && prevID != msg.DeviceID {
		c.ctrl.registry.Drop(prevID, c)
	}

	if displaced := c.ctrl.registry.Register(msg.DeviceID, c); displaced != nil {
		log.WithFields(log.Fields{
			"device_id": msg.DeviceID,
		}).Info("realtime: device re-registered, previous connection displaced")

		if c.ctrl.closeReplaced {
			displaced.Close()
		}
	}

	// The directory write is fire-and-forget relative to the connection:
	// its failure only feeds the log, never the acknowledgment.
	go c.ctrl.upsertDevice(msg.DeviceID, msg.IP)

	ack, err := json.Marshal(newRegisteredMessage())
	if err != nil {
		log.Errorf("realtime: failed to marshal registration ack: %v", err)
		return
	}
	c.enqueue(ws.OpText, ack)

	log.WithFields(log.Fields{
		"device_id": msg.DeviceID,
		"ip":        msg.IP,
	}).Info("realtime: device registered")
}
