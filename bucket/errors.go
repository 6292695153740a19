package bucket

import "errors"

// Common storage errors.
var (
	// ErrCredentials is returned when the storage provider rejects a
	// request for lack of usable credentials. A run that hits it stops
	// before writing anything.
	ErrCredentials = errors.New("storage credentials missing or rejected")

	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("object not found")
)
