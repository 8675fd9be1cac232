package backup

import "errors"

var (
	// ErrNoRemoteData is returned when the remote holds nothing to restore.
	ErrNoRemoteData = errors.New("no knowledge found in remote")

	// ErrPartialFailure is returned when some files of a bulk transfer failed.
	ErrPartialFailure = errors.New("some files failed")
)
