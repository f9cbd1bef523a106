package relationships

import (
	"context"
	"errors"

	"github.com/pingup/backend/internal/logging"
	"github.com/pingup/backend/internal/models"
	"github.com/pingup/backend/internal/notify"
	"github.com/pingup/backend/internal/repositories"
)

// SendResult reports the outcome of SendConnectionRequest.
type SendResult struct {
	RequestID string `json:"requestId"`
}

// SendConnectionRequest creates a pending request from actorID to targetID.
func (s *Service) SendConnectionRequest(ctx context.Context, actorID, targetID string) (result SendResult, err error) {
	if err := validatePair(actorID, targetID); err != nil {
		return SendResult{}, err
	}

	ctx, span := startOp(ctx, "relationships.send_request", actorID, targetID)
	defer func() { span.End(err) }()

	stale, err := s.guardSend(ctx, actorID, targetID)
	if err != nil {
		return SendResult{}, err
	}
	if stale != nil {
		logging.FromContext(ctx).Info("purging stale connection request", "requestId", stale.ID, "status", stale.Status)
		if err := s.requests.Delete(ctx, stale.ID); err != nil {
			return SendResult{}, storeError("purge stale request", err)
		}
	}

	now := s.now()
	if err := s.limiter.Check(ctx, actorID, now); err != nil {
		return SendResult{}, err
	}

	req := models.ConnectionRequest{
		ID:         s.newID(),
		FromUserID: actorID,
		ToUserID:   targetID,
		PairKey:    models.PairKey(actorID, targetID),
		Status:     models.RequestStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			// Another request for the pair won the unique index.
			return SendResult{}, ErrRequestAlreadyPending
		case errors.Is(err, repositories.ErrNotFound):
			return SendResult{}, ErrNotFound
		default:
			return SendResult{}, storeError("create connection request", err)
		}
	}

	s.emit(ctx, notify.Event{
		Name:       notify.EventConnectionRequest,
		RequestID:  req.ID,
		FromUserID: actorID,
		ToUserID:   targetID,
		OccurredAt: now,
	})

	return SendResult{RequestID: req.ID}, nil
}

// AcceptConnectionRequest accepts the pending request fromUserID sent to actorID
// and connects both users.
//
// The request is marked accepted first, then each user's connections set is
// updated. An accepted request whose sets were not fully written is finished
// by calling Accept again, which is also how a losing concurrent accept ends up
// as a no-op.
func (s *Service) AcceptConnectionRequest(ctx context.Context, actorID, fromUserID string) (err error) {
	if err := validatePair(actorID, fromUserID); err != nil {
		return err
	}

	ctx, span := startOp(ctx, "relationships.accept_request", actorID, fromUserID)
	defer func() { span.End(err) }()

	req, err := s.guardIncoming(ctx, actorID, fromUserID, true)
	if err != nil {
		return err
	}

	if req.Status == models.RequestStatusPending {
		if err := s.requests.MarkAccepted(ctx, req.ID, s.now()); err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return storeError("accept connection request", err)
			}
			// Lost a race. Carry on only if the winner also accepted.
			if req, err = s.guardIncoming(ctx, actorID, fromUserID, true); err != nil {
				return err
			}
			if req.Status != models.RequestStatusAccepted {
				return ErrRequestNotFound
			}
		}
	} else {
		logging.FromContext(ctx).Info("completing previously accepted request", "requestId", req.ID)
	}

	if err := s.addMember(ctx, fromUserID, models.SetConnections, actorID); err != nil {
		return err
	}
	return s.addMember(ctx, actorID, models.SetConnections, fromUserID)
}

// RejectConnectionRequest deletes the pending request fromUserID sent to
// actorID. Nothing about the rejection is kept, so either user may send a new
// request afterwards.
func (s *Service) RejectConnectionRequest(ctx context.Context, actorID, fromUserID string) (err error) {
	if err := validatePair(actorID, fromUserID); err != nil {
		return err
	}

	ctx, span := startOp(ctx, "relationships.reject_request", actorID, fromUserID)
	defer func() { span.End(err) }()

	req, err := s.guardIncoming(ctx, actorID, fromUserID, false)
	if err != nil {
		return err
	}
	return s.deletePending(ctx, req)
}

// CancelConnectionRequest withdraws the pending request actorID sent to toUserID.
func (s *Service) CancelConnectionRequest(ctx context.Context, actorID, toUserID string) (err error) {
	if err := validatePair(actorID, toUserID); err != nil {
		return err
	}

	ctx, span := startOp(ctx, "relationships.cancel_request", actorID, toUserID)
	defer func() { span.End(err) }()

	req, err := s.guardOutgoing(ctx, actorID, toUserID)
	if err != nil {
		return err
	}
	return s.deletePending(ctx, req)
}

func (s *Service) deletePending(ctx context.Context, req models.ConnectionRequest) error {
	if err := s.requests.DeletePending(ctx, req.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRequestNotFound
		}
		return storeError("delete connection request", err)
	}
	return nil
}

// RemoveConnection disconnects actorID and targetID.
//
// The accepted request record is deleted first so it cannot be used to
// re-complete the connection, then both connections sets are cleared.
func (s *Service) RemoveConnection(ctx context.Context, actorID, targetID string) (err error) {
	if err := validatePair(actorID, targetID); err != nil {
		return err
	}

	ctx, span := startOp(ctx, "relationships.remove_connection", actorID, targetID)
	defer func() { span.End(err) }()

	accepted, err := s.guardRemove(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	if accepted != nil {
		if err := s.requests.Delete(ctx, accepted.ID); err != nil {
			return storeError("delete accepted request", err)
		}
	}

	if err := s.removeMember(ctx, actorID, models.SetConnections, targetID); err != nil {
		return err
	}
	return s.removeMember(ctx, targetID, models.SetConnections, actorID)
}
