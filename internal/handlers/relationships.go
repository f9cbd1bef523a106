package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pingup/backend/internal/logging"
	"github.com/pingup/backend/internal/relationships"
)

// RelationshipHandler exposes follows and connection requests for the calling user.
type RelationshipHandler struct {
	Relationships RelationshipService
	Limiter       RateLimiter
}

type peerRequest struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// View handles GET /api/v1/relationships.
func (h RelationshipHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, actor, ok := h.begin(w, r)
	if !ok {
		return
	}

	view, err := h.Relationships.RelationshipView(ctx, actor)
	if err != nil {
		h.fail(ctx, w, "load relationships", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, view)
}

// Profile handles GET /api/v1/users/{id}.
func (h RelationshipHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, _, ok := h.begin(w, r)
	if !ok {
		return
	}

	target := strings.TrimSpace(r.PathValue("id"))
	if target == "" {
		respondError(ctx, w, http.StatusBadRequest, "id is required")
		return
	}

	profile, err := h.Relationships.UserProfile(ctx, target)
	if err != nil {
		h.fail(ctx, w, "load profile", err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profile)
}

// Follow handles POST /api/v1/relationships/follow.
func (h RelationshipHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "follow", func(ctx context.Context, actor, peer string) (int, any, error) {
		res, err := h.Relationships.Follow(ctx, actor, peer)
		return http.StatusOK, res, err
	})
}

// Unfollow handles POST /api/v1/relationships/unfollow.
func (h RelationshipHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "unfollow", func(ctx context.Context, actor, peer string) (int, any, error) {
		return http.StatusOK, statusResponse{Status: "unfollowed"}, h.Relationships.Unfollow(ctx, actor, peer)
	})
}

// Request handles POST /api/v1/connections/request.
func (h RelationshipHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "connection request", func(ctx context.Context, actor, peer string) (int, any, error) {
		res, err := h.Relationships.SendConnectionRequest(ctx, actor, peer)
		return http.StatusCreated, res, err
	})
}

// Accept handles POST /api/v1/connections/accept.
func (h RelationshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "accept", func(ctx context.Context, actor, peer string) (int, any, error) {
		return http.StatusOK, statusResponse{Status: "connected"}, h.Relationships.AcceptConnectionRequest(ctx, actor, peer)
	})
}

// Reject handles POST /api/v1/connections/reject.
func (h RelationshipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "reject", func(ctx context.Context, actor, peer string) (int, any, error) {
		return http.StatusOK, statusResponse{Status: "rejected"}, h.Relationships.RejectConnectionRequest(ctx, actor, peer)
	})
}

// Cancel handles POST /api/v1/connections/cancel.
func (h RelationshipHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "cancel", func(ctx context.Context, actor, peer string) (int, any, error) {
		return http.StatusOK, statusResponse{Status: "cancelled"}, h.Relationships.CancelConnectionRequest(ctx, actor, peer)
	})
}

// Remove handles POST /api/v1/connections/remove.
func (h RelationshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove", func(ctx context.Context, actor, peer string) (int, any, error) {
		return http.StatusOK, statusResponse{Status: "removed"}, h.Relationships.RemoveConnection(ctx, actor, peer)
	})
}

type mutation func(ctx context.Context, actor, peer string) (int, any, error)

func (h RelationshipHandler) mutate(w http.ResponseWriter, r *http.Request, action string, run mutation) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, actor, ok := h.begin(w, r)
	if !ok {
		return
	}

	if !allowRequest(h.Limiter, r, "relationships") {
		logging.FromContext(ctx).Warn("relationship request throttled", "action", action)
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req peerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.FromContext(ctx).Warn("invalid relationship payload", "action", action, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	peer := strings.TrimSpace(req.ID)
	if peer == "" {
		respondError(ctx, w, http.StatusBadRequest, "id is required")
		return
	}

	status, payload, err := run(ctx, actor, peer)
	if err != nil {
		h.fail(ctx, w, action, err)
		return
	}
	respondJSON(ctx, w, status, payload)
}

// begin resolves the caller and checks the handler is wired.
func (h RelationshipHandler) begin(w http.ResponseWriter, r *http.Request) (context.Context, string, bool) {
	ctx := r.Context()

	if h.Relationships == nil {
		logging.FromContext(ctx).Error("relationship service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "relationship service unavailable")
		return ctx, "", false
	}

	actor, ok := actorFromRequest(r)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "missing user identity")
		return ctx, "", false
	}
	return logging.WithActorID(ctx, actor), actor, true
}

func (h RelationshipHandler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("relationship operation failed", "action", action, "error", err)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	respondError(ctx, w, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, relationships.ErrInvalidTarget):
		return http.StatusBadRequest, relationships.ErrInvalidTarget.Error()
	case errors.Is(err, relationships.ErrNotFound):
		return http.StatusNotFound, relationships.ErrNotFound.Error()
	case errors.Is(err, relationships.ErrRequestNotFound):
		return http.StatusNotFound, relationships.ErrRequestNotFound.Error()
	case errors.Is(err, relationships.ErrConnectionNotFound):
		return http.StatusNotFound, relationships.ErrConnectionNotFound.Error()
	case errors.Is(err, relationships.ErrAlreadyConnected):
		return http.StatusConflict, relationships.ErrAlreadyConnected.Error()
	case errors.Is(err, relationships.ErrRequestAlreadyPending):
		return http.StatusConflict, relationships.ErrRequestAlreadyPending.Error()
	case errors.Is(err, relationships.ErrRateLimited):
		return http.StatusTooManyRequests, relationships.ErrRateLimited.Error()
	case relationships.Retryable(err):
		return http.StatusServiceUnavailable, "relationship store unavailable, retry the request"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
