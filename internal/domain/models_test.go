package domain

import "testing"

func TestRelationshipSetFollowUnfollowRoundTrip(t *testing.T) {
	orig := NewRelationshipSet("u1", "u2")
	s := orig.Clone()

	s.Add("u3")
	s.Remove("u3")

	if !s.Equal(orig) {
		t.Fatalf("expected %v, got %v", orig.IDs(), s.IDs())
	}
}

func TestRelationshipSetAddIsIdempotent(t *testing.T) {
	once := NewRelationshipSet("u1")
	once.Add("u2")

	twice := NewRelationshipSet("u1")
	twice.Add("u2")
	twice.Add("u2")

	if !once.Equal(twice) || twice.Len() != 2 {
		t.Fatalf("expected same set, got %v vs %v", once.IDs(), twice.IDs())
	}
}

func TestRelationshipSetRemoveAbsentIsNoop(t *testing.T) {
	s := NewRelationshipSet("u1")
	s.Remove("missing")
	if s.Len() != 1 || !s.Contains("u1") {
		t.Fatalf("unexpected set %v", s.IDs())
	}
}

func TestNewRelationshipSetDropsDuplicatesAndEmpty(t *testing.T) {
	s := NewRelationshipSet("b", "a", "", "b")
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
}
