package relationships

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxPendingRequests = 20
	DefaultRequestWindow      = 24 * time.Hour
)

// PendingCounter counts pending requests sent by a user since a point in time.
type PendingCounter interface {
	CountPendingFrom(ctx context.Context, userID string, since time.Time) (int, error)
}

// RequestLimiter caps how many pending requests a user may have created in a
// sliding window. The count is a query over stored requests rather than an
// in-process counter, so cancelled, rejected and accepted requests stop
// counting as soon as they leave the pending state.
type RequestLimiter struct {
	counter PendingCounter
	max     int
	window  time.Duration
}

// NewRequestLimiter returns a limiter allowing max pending requests per window.
func NewRequestLimiter(counter PendingCounter, max int, window time.Duration) *RequestLimiter {
	if max <= 0 {
		max = DefaultMaxPendingRequests
	}
	if window <= 0 {
		window = DefaultRequestWindow
	}
	return &RequestLimiter{counter: counter, max: max, window: window}
}

// Check returns ErrRateLimited when userID already has max pending requests
// created within the window ending at now.
func (l *RequestLimiter) Check(ctx context.Context, userID string, now time.Time) error {
	count, err := l.counter.CountPendingFrom(ctx, userID, now.Add(-l.window))
	if err != nil {
		return storeError("count pending requests", err)
	}
	if count >= l.max {
		return fmt.Errorf("%w: %d pending in the last %s", ErrRateLimited, count, l.window)
	}
	return nil
}
