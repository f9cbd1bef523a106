package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrUnknownSet indicates a member set outside followers, following and connections.
	ErrUnknownSet = errors.New("unknown member set")
)
