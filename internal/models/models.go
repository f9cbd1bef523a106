package models

import (
	"slices"
	"strconv"
	"time"
)

// User represents an account and its denormalized relationship sets.
type User struct {
	ID          string
	Followers   []string
	Following   []string
	Connections []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Has reports whether memberID is present in the given set of the user.
func (u User) Has(set MemberSet, memberID string) bool {
	return slices.Contains(u.Members(set), memberID)
}

// Members returns the ids stored in the given set.
func (u User) Members(set MemberSet) []string {
	switch set {
	case SetFollowers:
		return u.Followers
	case SetFollowing:
		return u.Following
	case SetConnections:
		return u.Connections
	default:
		return nil
	}
}

// MemberSet names one of the id sets embedded in a user record.
type MemberSet string

const (
	SetFollowers   MemberSet = "followers"
	SetFollowing   MemberSet = "following"
	SetConnections MemberSet = "connections"
)

// Valid reports whether the set is one of the known user-side sets.
func (s MemberSet) Valid() bool {
	switch s {
	case SetFollowers, SetFollowing, SetConnections:
		return true
	}
	return false
}

// ConnectionRequest tracks an unaccepted or accepted connection between two users.
type ConnectionRequest struct {
	ID         string
	FromUserID string
	ToUserID   string
	PairKey    string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	// RequestStatusRejected only appears in rows written before rejection
	// started deleting the record.
	RequestStatusRejected = "rejected"
)

// PairKey returns the canonical key for the unordered pair (a, b): the
// smaller id's byte length, then both ids in order, e.g. "5:alice:bob".
// The length prefix keeps ids that contain ':' from colliding.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}

// RelationshipView is the caller-facing summary of a user's relations.
type RelationshipView struct {
	UserID          string   `json:"userId"`
	Connections     []string `json:"connections"`
	Followers       []string `json:"followers"`
	Following       []string `json:"following"`
	PendingIncoming []string `json:"pendingIncoming"`
	PendingOutgoing []string `json:"pendingOutgoing"`

	ConnectionCount      int `json:"connectionCount"`
	FollowerCount        int `json:"followerCount"`
	FollowingCount       int `json:"followingCount"`
	PendingIncomingCount int `json:"pendingIncomingCount"`
	PendingOutgoingCount int `json:"pendingOutgoingCount"`
}

// ProfileView is what any user may see about another user: the public sets
// and their sizes, without pending requests.
type ProfileView struct {
	UserID      string   `json:"userId"`
	Connections []string `json:"connections"`
	Followers   []string `json:"followers"`
	Following   []string `json:"following"`

	ConnectionCount int `json:"connectionCount"`
	FollowerCount   int `json:"followerCount"`
	FollowingCount  int `json:"followingCount"`
}
