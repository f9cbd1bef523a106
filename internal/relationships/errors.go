package relationships

import (
	"errors"
	"fmt"
)

// Failures returned by Service. All of them describe real relationship state
// except ErrStoreUnavailable, which marks a transient store fault.
var (
	// ErrInvalidTarget indicates a missing target or an actor targeting themselves.
	ErrInvalidTarget = errors.New("invalid target user")
	// ErrNotFound indicates the actor or target user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyConnected indicates the pair is already connected.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrRequestAlreadyPending indicates a pending request exists for the pair in either direction.
	ErrRequestAlreadyPending = errors.New("connection request already pending")
	// ErrRateLimited indicates the actor has too many pending requests in the trailing window.
	ErrRateLimited = errors.New("too many pending connection requests")
	// ErrRequestNotFound indicates no pending request matches the actor and peer.
	ErrRequestNotFound = errors.New("connection request not found")
	// ErrConnectionNotFound indicates the actor is not connected to the target.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrStoreUnavailable indicates the store failed; the operation may be retried.
	ErrStoreUnavailable = errors.New("relationship store unavailable")
)

// Retryable reports whether err is a transient store failure. Re-running the
// same operation after such a failure converges to the intended state.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
