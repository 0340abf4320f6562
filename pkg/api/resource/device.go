package resource

import (
	"time"

	"github.com/rohitksw/sw-alert-system/pkg/model"
)

// DeviceResource is the API representation of a directory entry.
type DeviceResource struct {
	DeviceID    string    `json:"deviceId"`
	LastKnownIP string    `json:"lastKnownIp"`
	LastSeen    time.Time `json:"lastSeen"`
}

// NewDevice creates a device resource from the model.
func NewDevice(m *model.Device) *DeviceResource {
	return &DeviceResource{
		DeviceID:    m.DeviceID,
		LastKnownIP: m.LastKnownIP,
		LastSeen:    m.LastSeen,
	}
}

// NewDeviceList creates a list of device resources from the models.
func NewDeviceList(models []model.Device) []*DeviceResource {
	list := make([]*DeviceResource, 0, len(models))
	for i := range models {
		list = append(list, NewDevice(&models[i]))
	}
	return list
}
