package storage

import (
	"time"

	"github.com/rohitksw/sw-alert-system/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Devices() DeviceStore
}

// DeviceStore is responsible for managing the Device model. Upsert is the
// only write path: registrations record the latest claimed address and are
// idempotent, so no cross-instance locking is required.
type DeviceStore interface {
	FetchAll() ([]model.Device, error)
	FindByDeviceID(deviceID string) (*model.Device, error)
	Upsert(deviceID, ip string, seenAt time.Time) error
}
