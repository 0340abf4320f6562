package postgres

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rohitksw/sw-alert-system/pkg/model"
	"github.com/rohitksw/sw-alert-system/pkg/storage"
)

func newDeviceStore(db *sqlx.DB) *deviceStore {
	return &deviceStore{
		db: db,
	}
}

type deviceStore struct {
	db *sqlx.DB
}

type sqlDataDevice struct {
	ID          int32     `db:"id"`
	DeviceID    string    `db:"device_id"`
	LastKnownIP string    `db:"last_known_ip"`
	LastSeen    time.Time `db:"last_seen"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (d *sqlDataDevice) Model() (*model.Device, error) {
	m := &model.Device{
		ID:          d.ID,
		DeviceID:    d.DeviceID,
		LastKnownIP: d.LastKnownIP,
		LastSeen:    d.LastSeen,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}

	return m, nil
}

func (s *deviceStore) FetchAll() ([]model.Device, error) {
	return fetchAllDevices(s.db)
}

func (s *deviceStore) FindByDeviceID(deviceID string) (*model.Device, error) {
	return findDeviceByDeviceID(s.db, deviceID)
}

func (s *deviceStore) Upsert(deviceID, ip string, seenAt time.Time) error {
	return upsertDevice(s.db, deviceID, ip, seenAt)
}

func fetchAllDevices(db *sqlx.DB) ([]model.Device, error) {
	rows := make([]sqlDataDevice, 0)
	models := make([]model.Device, 0)

	query := "SELECT * FROM devices ORDER BY device_id"
	if err := db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all devices")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to device model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func findDeviceByDeviceID(db *sqlx.DB, deviceID string) (*model.Device, error) {
	d := sqlDataDevice{}
	query := "SELECT * FROM devices WHERE device_id=$1"
	if err := db.Get(&d, query, deviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find device")
	}

	return d.Model()
}

func upsertDevice(db *sqlx.DB, deviceID, ip string, seenAt time.Time) error {
	now := time.Now().Round(time.Second).UTC()

	query := `INSERT INTO devices (device_id, last_known_ip, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (device_id)
		DO UPDATE SET last_known_ip=$2, last_seen=$3, updated_at=$4`
	if _, err := db.Exec(query, deviceID, ip, seenAt, now); err != nil {
		return errors.Wrap(err, "failed to upsert device")
	}

	return nil
}
