// Package relationships keeps follows, connections and connection requests
// consistent across user records that can only be updated one at a time.
//
// Every operation re-reads the state it depends on, then applies a sequence
// of idempotent or conditional single-record writes. If any write fails the
// operation returns ErrStoreUnavailable and running it again completes it.
package relationships

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pingup/backend/internal/logging"
	"github.com/pingup/backend/internal/models"
	"github.com/pingup/backend/internal/notify"
)

// UserStore loads users and edits their member sets one record at a time.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	AddMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error
	RemoveMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error
}

// RequestStore persists connection requests, unique per unordered pair.
type RequestStore interface {
	Create(ctx context.Context, request models.ConnectionRequest) error
	FindBetween(ctx context.Context, a, b string) (models.ConnectionRequest, error)
	MarkAccepted(ctx context.Context, requestID string, at time.Time) error
	DeletePending(ctx context.Context, requestID string) error
	Delete(ctx context.Context, requestID string) error
	PendingCounter
	ListPendingTo(ctx context.Context, userID string) ([]models.ConnectionRequest, error)
	ListPendingFrom(ctx context.Context, userID string) ([]models.ConnectionRequest, error)
}

// Notifier receives events on a best-effort basis.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event) error
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	MaxPendingRequests int
	RequestWindow      time.Duration
	Notifier           Notifier
	NowFunc            func() time.Time
	NewID              func() string
}

// Service implements the follow and connection operations.
type Service struct {
	users    UserStore
	requests RequestStore
	limiter  *RequestLimiter
	notifier Notifier
	nowFunc  func() time.Time
	newID    func() string
}

// NewService constructs a Service over the provided stores.
func NewService(users UserStore, requests RequestStore, opts Options) *Service {
	if users == nil || requests == nil {
		panic("relationships: user and request stores must not be nil")
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Service{
		users:    users,
		requests: requests,
		limiter:  NewRequestLimiter(requests, opts.MaxPendingRequests, opts.RequestWindow),
		notifier: opts.Notifier,
		nowFunc:  opts.NowFunc,
		newID:    newID,
	}
}

func (s *Service) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc().UTC()
	}
	return time.Now().UTC()
}

// startOp opens a span for one operation between actor and target.
func startOp(ctx context.Context, name, actorID, targetID string) (context.Context, *logging.Span) {
	return logging.StartSpan(ctx, name,
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
	)
}

// emit hands the event to the notifier. Failures are logged and swallowed.
func (s *Service) emit(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("notification not sent", "event", event.Name, "requestId", event.RequestID, "error", err)
	}
}
