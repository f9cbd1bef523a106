package notify

import "time"

// EventConnectionRequest is emitted after a connection request is created.
const EventConnectionRequest = "app/connection-request"

// Event describes a relationship change consumed by downstream notifiers.
type Event struct {
	Name       string    `json:"name"`
	RequestID  string    `json:"requestId"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	OccurredAt time.Time `json:"occurredAt"`
}
