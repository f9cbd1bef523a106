package repositories

import (
	"context"

	"github.com/pingup/backend/internal/models"
)

// UserRepository defines the data access contract for users and their member sets.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	AddMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error
	RemoveMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error
}
