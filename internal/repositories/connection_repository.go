package repositories

import (
	"context"
	"time"

	"github.com/pingup/backend/internal/models"
)

// ConnectionRepository defines data access for connection requests.
//
// Records are unique per unordered pair. MarkAccepted and DeletePending only
// act on pending records and return ErrNotFound otherwise, which lets callers
// race on the same request without a transaction.
type ConnectionRepository interface {
	Create(ctx context.Context, request models.ConnectionRequest) error
	FindBetween(ctx context.Context, a, b string) (models.ConnectionRequest, error)
	MarkAccepted(ctx context.Context, requestID string, at time.Time) error
	DeletePending(ctx context.Context, requestID string) error
	Delete(ctx context.Context, requestID string) error
	CountPendingFrom(ctx context.Context, userID string, since time.Time) (int, error)
	ListPendingTo(ctx context.Context, userID string) ([]models.ConnectionRequest, error)
	ListPendingFrom(ctx context.Context, userID string) ([]models.ConnectionRequest, error)
}
