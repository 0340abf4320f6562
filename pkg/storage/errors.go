package storage

type storageError string

// ErrNotFound is returned by directory lookups that match no device.
const ErrNotFound = storageError("device not found")

func (e storageError) Error() string {
	return string(e)
}
