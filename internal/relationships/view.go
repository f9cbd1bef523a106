package relationships

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/pingup/backend/internal/models"
)

// RelationshipView returns the user's connections, follows and pending requests.
// The three reads are independent and run concurrently.
func (s *Service) RelationshipView(ctx context.Context, userID string) (models.RelationshipView, error) {
	if userID == "" {
		return models.RelationshipView{}, ErrInvalidTarget
	}

	var (
		user     models.User
		incoming []models.ConnectionRequest
		outgoing []models.ConnectionRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.loadUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		if incoming, err = s.requests.ListPendingTo(gctx, userID); err != nil {
			return storeError("list incoming requests", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if outgoing, err = s.requests.ListPendingFrom(gctx, userID); err != nil {
			return storeError("list outgoing requests", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.RelationshipView{}, err
	}

	view := models.RelationshipView{
		UserID:          userID,
		Connections:     ids(user.Connections),
		Followers:       ids(user.Followers),
		Following:       ids(user.Following),
		PendingIncoming: make([]string, 0, len(incoming)),
		PendingOutgoing: make([]string, 0, len(outgoing)),
	}
	for _, req := range incoming {
		view.PendingIncoming = append(view.PendingIncoming, req.FromUserID)
	}
	for _, req := range outgoing {
		view.PendingOutgoing = append(view.PendingOutgoing, req.ToUserID)
	}

	view.ConnectionCount = len(view.Connections)
	view.FollowerCount = len(view.Followers)
	view.FollowingCount = len(view.Following)
	view.PendingIncomingCount = len(view.PendingIncoming)
	view.PendingOutgoingCount = len(view.PendingOutgoing)

	return view, nil
}

// UserProfile returns the public relationship sets of any user. Pending
// requests are private to their two parties and are left out.
func (s *Service) UserProfile(ctx context.Context, userID string) (models.ProfileView, error) {
	if userID == "" {
		return models.ProfileView{}, ErrInvalidTarget
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}

	profile := models.ProfileView{
		UserID:      user.ID,
		Connections: ids(user.Connections),
		Followers:   ids(user.Followers),
		Following:   ids(user.Following),
	}
	profile.ConnectionCount = len(profile.Connections)
	profile.FollowerCount = len(profile.Followers)
	profile.FollowingCount = len(profile.Following)
	return profile, nil
}

func ids(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
