package realtime

import (
	"net"
	"sync"
)

// Registry is the per-instance session table: device ID to active
// connection. It is owned exclusively by its hosting process and never
// shared across instances; the bus is the only inter-instance coordination
// mechanism. All operations are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Conn
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Conn),
	}
}

// Register inserts or replaces the session for deviceID, last writer wins.
// If a different live connection held the device ID it is returned as
// displaced. The displaced connection is not closed here: whether it is
// terminated or left to run into its own close handler is the caller's
// policy.
func (r *Registry) Register(deviceID string, c *Conn) (displaced *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.sessions[deviceID]
	r.sessions[deviceID] = c

	if old != nil && old != c {
		return old
	}
	return nil
}

// LookupByAddress returns every session whose claimed address equals addr.
// Zero, one or many matches are all valid: multiple devices may sit behind
// the same address.
func (r *Registry) LookupByAddress(addr string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Conn
	for _, c := range r.sessions {
		if c.Address() == addr {
			matches = append(matches, c)
		}
	}
	return matches
}

// Remove erases every session owned by the given transport connection. A
// connection normally holds a single entry, but re-registrations can leave
// more than one behind, so the full table is swept. It is a no-op if no
// session matches, so close handlers may call it blindly.
func (r *Registry) Remove(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.sessions {
		if c.conn == conn {
			delete(r.sessions, id)
		}
	}
}

// Drop erases the entry for deviceID if it is still owned by c. Called when
// a connection re-registers under a new device ID so the old key stops
// pointing at it.
func (r *Registry) Drop(deviceID string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[deviceID] == c {
		delete(r.sessions, deviceID)
	}
}

// Snapshot returns a copy of all current sessions. The heartbeat monitor
// iterates over snapshots so the live table is never mutated while being
// walked.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.sessions))
	for _, c := range r.sessions {
		out = append(out, c)
	}
	return out
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
