package relationships

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pingup/backend/internal/models"
	"github.com/pingup/backend/internal/repositories"
)

// The checks in this file derive the current state of a pair from the store.
// Callers never pass state in; each mutating operation starts from a fresh read.

func validatePair(actorID, targetID string) error {
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" || actorID == targetID {
		return ErrInvalidTarget
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.User{}, storeError("load user", err)
	}
	return user, nil
}

func (s *Service) loadPair(ctx context.Context, actorID, targetID string) (models.User, models.User, error) {
	actor, err := s.loadUser(ctx, actorID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return models.User{}, models.User{}, err
	}
	return actor, target, nil
}

// findRequest returns the request between a and b in either direction.
func (s *Service) findRequest(ctx context.Context, a, b string) (models.ConnectionRequest, bool, error) {
	req, err := s.requests.FindBetween(ctx, a, b)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ConnectionRequest{}, false, nil
		}
		return models.ConnectionRequest{}, false, storeError("find connection request", err)
	}
	return req, true, nil
}

func connected(actor, target models.User) bool {
	return actor.Has(models.SetConnections, target.ID) || target.Has(models.SetConnections, actor.ID)
}

// guardSend decides whether actor may send a request to target. It returns a
// leftover rejected record that must be purged before the new one is created.
func (s *Service) guardSend(ctx context.Context, actorID, targetID string) (*models.ConnectionRequest, error) {
	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if connected(actor, target) {
		return nil, ErrAlreadyConnected
	}

	existing, ok, err := s.findRequest(ctx, actorID, targetID)
	if err != nil || !ok {
		return nil, err
	}

	switch existing.Status {
	case models.RequestStatusPending:
		return nil, ErrRequestAlreadyPending
	case models.RequestStatusAccepted:
		return nil, ErrAlreadyConnected
	default:
		return &existing, nil
	}
}

// guardIncoming finds the request from fromID to actorID. Pending requests are
// always returned; accepted ones only when allowAccepted is set.
func (s *Service) guardIncoming(ctx context.Context, actorID, fromID string, allowAccepted bool) (models.ConnectionRequest, error) {
	req, ok, err := s.findRequest(ctx, actorID, fromID)
	if err != nil {
		return models.ConnectionRequest{}, err
	}
	if !ok || req.FromUserID != fromID || req.ToUserID != actorID {
		return models.ConnectionRequest{}, ErrRequestNotFound
	}

	switch {
	case req.Status == models.RequestStatusPending:
		return req, nil
	case req.Status == models.RequestStatusAccepted && allowAccepted:
		return req, nil
	default:
		return models.ConnectionRequest{}, ErrRequestNotFound
	}
}

// guardOutgoing finds the pending request actorID sent to toID.
func (s *Service) guardOutgoing(ctx context.Context, actorID, toID string) (models.ConnectionRequest, error) {
	req, ok, err := s.findRequest(ctx, actorID, toID)
	if err != nil {
		return models.ConnectionRequest{}, err
	}
	if !ok || req.FromUserID != actorID || req.ToUserID != toID || req.Status != models.RequestStatusPending {
		return models.ConnectionRequest{}, ErrRequestNotFound
	}
	return req, nil
}

// guardRemove accepts any evidence of the connection: membership on either
// side or an accepted record. Checking both sides lets a remove that failed
// halfway be finished by either user.
func (s *Service) guardRemove(ctx context.Context, actorID, targetID string) (*models.ConnectionRequest, error) {
	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	req, ok, err := s.findRequest(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	var accepted *models.ConnectionRequest
	if ok && req.Status == models.RequestStatusAccepted {
		accepted = &req
	}

	if !connected(actor, target) && accepted == nil {
		return nil, ErrConnectionNotFound
	}
	return accepted, nil
}
