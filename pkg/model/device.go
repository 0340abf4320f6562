package model

import "time"

// Device is a model of the persistency layer. It records the last-known
// network address a device claimed at registration time.
type Device struct {
	ID          int32
	DeviceID    string
	LastKnownIP string
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
