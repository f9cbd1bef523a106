package handlers

import (
	"context"

	"github.com/pingup/backend/internal/models"
	"github.com/pingup/backend/internal/relationships"
)

// RelationshipService captures the follow and connection operations exposed over HTTP.
type RelationshipService interface {
	Follow(ctx context.Context, actorID, targetID string) (relationships.FollowResult, error)
	Unfollow(ctx context.Context, actorID, targetID string) error
	SendConnectionRequest(ctx context.Context, actorID, targetID string) (relationships.SendResult, error)
	AcceptConnectionRequest(ctx context.Context, actorID, fromUserID string) error
	RejectConnectionRequest(ctx context.Context, actorID, fromUserID string) error
	CancelConnectionRequest(ctx context.Context, actorID, toUserID string) error
	RemoveConnection(ctx context.Context, actorID, targetID string) error
	RelationshipView(ctx context.Context, userID string) (models.RelationshipView, error)
	UserProfile(ctx context.Context, userID string) (models.ProfileView, error)
}

var _ RelationshipService = (*relationships.Service)(nil)
