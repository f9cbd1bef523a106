package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pingup/backend/internal/models"
)

// NewMemoryStore returns a user and connection request store backed by in-memory maps.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		requests: make(map[string]models.ConnectionRequest),
		pairs:    make(map[string]string),
	}
}

// MemoryStore implements UserRepository, and ConnectionRepository through
// Connections, for tests and local development. Every method touches a single record under the lock, which
// mirrors the per-row atomicity of the SQL store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	requests map[string]models.ConnectionRequest
	pairs    map[string]string // pair key -> request id
}

// Create stores a new user.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

// FindByID returns a copy of the stored user.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

// AddMember appends memberID to the set unless it is already present.
func (s *MemoryStore) AddMember(_ context.Context, userID string, set models.MemberSet, memberID string) error {
	if !set.Valid() {
		return ErrUnknownSet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	members := user.Members(set)
	if !slices.Contains(members, memberID) {
		setMembers(&user, set, append(slices.Clone(members), memberID))
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// RemoveMember drops memberID from the set.
func (s *MemoryStore) RemoveMember(_ context.Context, userID string, set models.MemberSet, memberID string) error {
	if !set.Valid() {
		return ErrUnknownSet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	members := slices.DeleteFunc(slices.Clone(user.Members(set)), func(id string) bool { return id == memberID })
	setMembers(&user, set, members)
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

// CreateRequest persists a connection request, enforcing pair uniqueness.
func (s *MemoryStore) CreateRequest(_ context.Context, request models.ConnectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if request.PairKey == "" {
		request.PairKey = models.PairKey(request.FromUserID, request.ToUserID)
	}
	if _, ok := s.pairs[request.PairKey]; ok {
		return ErrConflict
	}
	if _, ok := s.requests[request.ID]; ok {
		return ErrConflict
	}
	_, fromOK := s.users[request.FromUserID]
	_, toOK := s.users[request.ToUserID]
	if !fromOK || !toOK {
		return ErrNotFound
	}

	s.requests[request.ID] = request
	s.pairs[request.PairKey] = request.ID
	return nil
}

// FindBetween returns the request for the unordered pair.
func (s *MemoryStore) FindBetween(_ context.Context, a, b string) (models.ConnectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pairs[models.PairKey(a, b)]
	if !ok {
		return models.ConnectionRequest{}, ErrNotFound
	}
	return s.requests[id], nil
}

// MarkAccepted moves a pending request to accepted.
func (s *MemoryStore) MarkAccepted(_ context.Context, requestID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok || req.Status != models.RequestStatusPending {
		return ErrNotFound
	}
	req.Status = models.RequestStatusAccepted
	req.UpdatedAt = at.UTC()
	s.requests[requestID] = req
	return nil
}

// DeletePending removes the request only while it is pending.
func (s *MemoryStore) DeletePending(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok || req.Status != models.RequestStatusPending {
		return ErrNotFound
	}
	s.deleteLocked(req)
	return nil
}

// Delete removes the request regardless of status.
func (s *MemoryStore) Delete(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req, ok := s.requests[requestID]; ok {
		s.deleteLocked(req)
	}
	return nil
}

// CountPendingFrom counts pending requests sent by userID since the given time.
func (s *MemoryStore) CountPendingFrom(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, req := range s.requests {
		if req.FromUserID == userID && req.Status == models.RequestStatusPending && !req.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// ListPendingTo returns pending requests received by userID, newest first.
func (s *MemoryStore) ListPendingTo(_ context.Context, userID string) ([]models.ConnectionRequest, error) {
	return s.listPending(func(req models.ConnectionRequest) bool { return req.ToUserID == userID }), nil
}

// ListPendingFrom returns pending requests sent by userID, newest first.
func (s *MemoryStore) ListPendingFrom(_ context.Context, userID string) ([]models.ConnectionRequest, error) {
	return s.listPending(func(req models.ConnectionRequest) bool { return req.FromUserID == userID }), nil
}

// Requests returns a snapshot of all stored requests. Useful for tests.
func (s *MemoryStore) Requests() []models.ConnectionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConnectionRequest, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) listPending(match func(models.ConnectionRequest) bool) []models.ConnectionRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ConnectionRequest
	for _, req := range s.requests {
		if req.Status == models.RequestStatusPending && match(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) deleteLocked(req models.ConnectionRequest) {
	delete(s.requests, req.ID)
	if s.pairs[req.PairKey] == req.ID {
		delete(s.pairs, req.PairKey)
	}
}

func setMembers(user *models.User, set models.MemberSet, members []string) {
	switch set {
	case models.SetFollowers:
		user.Followers = members
	case models.SetFollowing:
		user.Following = members
	case models.SetConnections:
		user.Connections = members
	}
}

func cloneUser(user models.User) models.User {
	user.Followers = slices.Clone(user.Followers)
	user.Following = slices.Clone(user.Following)
	user.Connections = slices.Clone(user.Connections)
	return user
}

// Connections adapts the store's request methods to ConnectionRepository,
// whose Create would otherwise clash with the user Create.
func (s *MemoryStore) Connections() ConnectionRepository {
	return memoryConnections{s}
}

type memoryConnections struct {
	*MemoryStore
}

func (m memoryConnections) Create(ctx context.Context, request models.ConnectionRequest) error {
	return m.MemoryStore.CreateRequest(ctx, request)
}

var _ UserRepository = (*MemoryStore)(nil)
var _ ConnectionRepository = memoryConnections{}
