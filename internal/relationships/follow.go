package relationships

import (
	"context"
	"errors"

	"github.com/pingup/backend/internal/models"
	"github.com/pingup/backend/internal/repositories"
)

// FollowResult reports the outcome of Follow.
type FollowResult struct {
	AlreadyFollowing bool `json:"alreadyFollowing"`
}

// Follow subscribes actorID to targetID. Following an already-followed user is
// not an error; the follower side is re-applied in case an earlier call stopped
// halfway.
func (s *Service) Follow(ctx context.Context, actorID, targetID string) (result FollowResult, err error) {
	if err := validatePair(actorID, targetID); err != nil {
		return FollowResult{}, err
	}

	ctx, span := startOp(ctx, "relationships.follow", actorID, targetID)
	defer func() { span.End(err) }()

	actor, _, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return FollowResult{}, err
	}
	result.AlreadyFollowing = actor.Has(models.SetFollowing, targetID)

	if err := s.addMember(ctx, actorID, models.SetFollowing, targetID); err != nil {
		return FollowResult{}, err
	}
	if err := s.addMember(ctx, targetID, models.SetFollowers, actorID); err != nil {
		return FollowResult{}, err
	}

	return result, nil
}

// Unfollow removes the follow from actorID to targetID. It succeeds when no
// follow exists and tolerates a target account that no longer exists.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID string) (err error) {
	if err := validatePair(actorID, targetID); err != nil {
		return err
	}

	ctx, span := startOp(ctx, "relationships.unfollow", actorID, targetID)
	defer func() { span.End(err) }()

	if err := s.removeMember(ctx, actorID, models.SetFollowing, targetID); err != nil {
		return err
	}
	if err := s.removeMember(ctx, targetID, models.SetFollowers, actorID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) addMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error {
	if err := s.users.AddMember(ctx, userID, set, memberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("add "+string(set)+" member", err)
	}
	return nil
}

func (s *Service) removeMember(ctx context.Context, userID string, set models.MemberSet, memberID string) error {
	if err := s.users.RemoveMember(ctx, userID, set, memberID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("remove "+string(set)+" member", err)
	}
	return nil
}
