package github

import "errors"

var (
	// ErrNotFound is returned when the remote path does not exist.
	ErrNotFound = errors.New("remote path not found")

	// ErrInvalidRepo is returned for a repository name not in owner/name form.
	ErrInvalidRepo = errors.New("repository must be owner/name")

	// ErrNotAFile is returned when a file operation hits a directory.
	ErrNotAFile = errors.New("remote path is not a file")
)
