package publishers

import "time"

const (
	EventFollowCreated = "follow.created"
	EventFollowDeleted = "follow.deleted"
)

// Event is a relationship change published downstream.
type Event struct {
	Type        string    `json:"type"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for one edge of the follow graph.
func NewEvent(typ, followerID, followingID string) Event {
	return Event{
		Type:        typ,
		FollowerID:  followerID,
		FollowingID: followingID,
		OccurredAt:  time.Now().UTC(),
	}
}

// attributes are attached to queue/topic messages so subscribers can filter.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type":  e.Type,
		"follower_id": e.FollowerID,
	}
}
