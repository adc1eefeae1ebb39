package domain

import "sort"

// Domain contains the relationship models shared by the client and the reference endpoint.

// RelationshipSet is the set of subject ids the current actor follows.
type RelationshipSet map[string]struct{}

// NewRelationshipSet builds a set from ids, dropping empty and duplicate entries.
func NewRelationshipSet(ids ...string) RelationshipSet {
	s := make(RelationshipSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Contains reports whether id is in the set.
func (s RelationshipSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id. Adding an id twice leaves the set unchanged.
func (s RelationshipSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Remove deletes id; removing an absent id is a no-op.
func (s RelationshipSet) Remove(id string) {
	delete(s, id)
}

func (s RelationshipSet) Len() int { return len(s) }

// IDs returns the members in ascending order.
func (s RelationshipSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s RelationshipSet) Clone() RelationshipSet {
	out := make(RelationshipSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s RelationshipSet) Equal(other RelationshipSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// FollowRequest is the body of a follow mutation.
type FollowRequest struct {
	FollowID string `json:"follow_id"`
}

// MutationOutcome is the result of a follow or unfollow call.
type MutationOutcome struct {
	OK     bool
	Reason string
	Err    error
}

// Success reports a mutation the server accepted.
func Success() MutationOutcome { return MutationOutcome{OK: true} }

// Failure reports a rejected or undelivered mutation.
func Failure(reason string, err error) MutationOutcome {
	return MutationOutcome{Reason: reason, Err: err}
}
