package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/rohitksw/sw-alert-system/pkg/model"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
)

type deviceStore struct {
	store  map[string]model.Device
	nextID int32
	sync.RWMutex
}

func newDeviceStore() *deviceStore {
	return &deviceStore{
		store:  make(map[string]model.Device),
		nextID: 1,
	}
}

func (s *deviceStore) FetchAll() ([]model.Device, error) {
	s.RLock()
	defer s.RUnlock()
	models := make([]model.Device, 0, len(s.store))

	for _, m := range s.store {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return models[i].DeviceID < models[j].DeviceID
	})

	return models, nil
}

func (s *deviceStore) FindByDeviceID(deviceID string) (*model.Device, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[deviceID]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *deviceStore) Upsert(deviceID, ip string, seenAt time.Time) error {
	s.Lock()
	defer s.Unlock()

	now := time.Now().Round(time.Second).UTC()

	m, ok := s.store[deviceID]
	if !ok {
		m = model.Device{
			ID:        s.getNextID(),
			DeviceID:  deviceID,
			CreatedAt: now,
		}
	}

	m.LastKnownIP = ip
	m.LastSeen = seenAt
	m.UpdatedAt = now
	s.store[deviceID] = m

	return nil
}

func (s *deviceStore) getNextID() int32 {
	id := s.nextID
	s.nextID++
	return id
}
