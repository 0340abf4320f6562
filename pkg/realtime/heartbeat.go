package realtime

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Monitor runs the periodic liveness sweep. Each period it walks a snapshot
// of the registry: sessions that did not answer the previous ping are
// terminated, the rest are pinged again. A silent peer is therefore
// detected within at most two periods.
type Monitor struct {
	registry *Registry
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a heartbeat monitor over the given registry.
func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (m *Monitor) Start() {
	go m.run()
}

// Stop cancels the sweep loop. It is called on server shutdown so the
// ticker does not leak.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *Monitor) run() {
	log.Infof("heartbeat monitor started with interval %s", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			log.Info("heartbeat monitor stopped")
			return
		}
	}
}

func (m *Monitor) sweep() {
	for _, c := range m.registry.Snapshot() {
		if !c.Alive() {
			log.WithFields(log.Fields{
				"device_id": c.DeviceID(),
			}).Warn("heartbeat: terminating unresponsive connection")
			c.Close()
			continue
		}

		c.clearAlive()
		c.Ping()
	}
}
