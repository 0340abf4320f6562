package realtime

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rohitksw/sw-alert-system/pkg/alert"
	log "github.com/sirupsen/logrus"
)

// Bridge subscribes this instance to the alert channel on the bus and fans
// every received envelope out to the local sessions matching its target
// address. Delivery is at-most-once per open matching session, with no
// acknowledgment path back to the publisher.
type Bridge struct {
	nc       *nats.Conn
	registry *Registry
	subject  string
	sub      *nats.Subscription
}

// NewBridge creates a fan-out bridge for the given bus channel.
func NewBridge(nc *nats.Conn, registry *Registry, subject string) *Bridge {
	return &Bridge{
		nc:       nc,
		registry: registry,
		subject:  subject,
	}
}

// Subscribe attaches the bridge to the bus. Every instance subscribes
// plainly (no queue group): each envelope must reach every instance,
// including the one that published it.
func (b *Bridge) Subscribe() error {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		b.handleEnvelope(msg.Data)
	})
	if err != nil {
		return err
	}

	b.sub = sub
	log.Infof("bridge subscribed to alert channel %q", b.subject)
	return nil
}

// handleEnvelope processes one bus message. Malformed messages are logged
// and dropped, they must never take the subscriber loop down.
func (b *Bridge) handleEnvelope(data []byte) {
	env := alert.Envelope{}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warnf("bridge: dropping malformed envelope: %v", err)
		return
	}

	delivered := 0
	for _, c := range b.registry.LookupByAddress(env.TargetAddress) {
		if c.PushAlert(env.Payload) {
			delivered++
		}
	}

	log.WithFields(log.Fields{
		"target":    env.TargetAddress,
		"delivered": delivered,
	}).Debug("bridge: envelope processed")
}
