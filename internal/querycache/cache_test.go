package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tcg-hq/followers/internal/domain"
)

func staticFetcher(calls *atomic.Int32, ids ...string) Fetcher {
	return func(context.Context) (domain.RelationshipSet, error) {
		calls.Add(1)
		return domain.NewRelationshipSet(ids...), nil
	}
}

func TestLoadFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	if c.Key() != FollowedUsersKey {
		t.Fatalf("key = %q", c.Key())
	}
	if got := c.Get().Status; got != StatusPending {
		t.Fatalf("initial status = %s", got)
	}

	snap := c.Load(context.Background(), staticFetcher(&calls, "u1", "u2"))
	if snap.Status != StatusReady || snap.Set.Len() != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	c.Load(context.Background(), staticFetcher(&calls, "other"))
	if calls.Load() != 1 {
		t.Fatalf("expected a single fetch, got %d", calls.Load())
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (domain.RelationshipSet, error) {
		calls.Add(1)
		<-release
		return domain.NewRelationshipSet("u1"), nil
	}

	c := New(FollowedUsersKey)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Load(context.Background(), fetch)
		}()
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls.Load())
	}
	if c.Get().Status != StatusReady {
		t.Fatalf("expected ready")
	}
}

func TestLoadErrorIsSticky(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("forbidden")
	c := New("")
	snap := c.Load(context.Background(), func(context.Context) (domain.RelationshipSet, error) {
		calls.Add(1)
		return nil, boom
	})
	if snap.Status != StatusError || !errors.Is(snap.Err, boom) || snap.Set != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	c.Load(context.Background(), staticFetcher(&calls, "u1"))
	if calls.Load() != 1 {
		t.Fatalf("error state must not refetch, calls=%d", calls.Load())
	}
}

func TestApplyFollowAndUnfollow(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	c.Load(context.Background(), staticFetcher(&calls, "u1"))
	before := c.Get().Set

	if !c.ApplyFollow("u2") || !c.ApplyFollow("u2") {
		t.Fatalf("apply on ready cache must succeed")
	}
	if got := c.Get().Set; got.Len() != 2 || !got.Contains("u2") {
		t.Fatalf("after follow %v", got.IDs())
	}

	c.ApplyUnfollow("u2")
	c.ApplyUnfollow("u2")
	if got := c.Get().Set; !got.Equal(before) {
		t.Fatalf("round trip mismatch %v vs %v", got.IDs(), before.IDs())
	}
	if calls.Load() != 1 {
		t.Fatalf("mutations must not refetch")
	}
}

func TestApplyBeforeReadyIsIgnored(t *testing.T) {
	c := New("")
	if c.ApplyFollow("u1") || c.ApplyUnfollow("u1") {
		t.Fatalf("apply on pending cache must report false")
	}
	if c.Get().Set != nil {
		t.Fatalf("pending cache must hold no set")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	c.Load(context.Background(), staticFetcher(&calls, "u1"))
	snap := c.Get()
	snap.Set.Add("intruder")
	if c.Get().Set.Contains("intruder") {
		t.Fatalf("snapshot mutation leaked into cache")
	}
}

func TestDiscardResets(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	c.Load(context.Background(), staticFetcher(&calls, "u1"))
	c.Discard()
	if c.Get().Status != StatusPending {
		t.Fatalf("expected pending after discard")
	}
	c.Load(context.Background(), staticFetcher(&calls, "u1"))
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after discard, calls=%d", calls.Load())
	}
}

func TestDiscardDuringFetchDropsLateResult(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan Snapshot, 1)
	go func() {
		done <- c.Load(context.Background(), func(context.Context) (domain.RelationshipSet, error) {
			calls.Add(1)
			close(started)
			<-release
			return domain.NewRelationshipSet("stale"), nil
		})
	}()

	<-started
	c.Discard()
	close(release)
	<-done

	if snap := c.Get(); snap.Status != StatusPending || snap.Set != nil {
		t.Fatalf("late fetch must not fill a discarded cache, got %s %v", snap.Status, snap.Set)
	}
	snap := c.Load(context.Background(), staticFetcher(&calls, "fresh"))
	if snap.Status != StatusReady || !snap.Set.Contains("fresh") || snap.Set.Contains("stale") {
		t.Fatalf("unexpected snapshot after reload %+v", snap)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a second fetch, calls=%d", calls.Load())
	}
}

func TestCanceledLoadStaysPending(t *testing.T) {
	var calls atomic.Int32
	c := New("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := c.Load(ctx, func(ctx context.Context) (domain.RelationshipSet, error) {
		calls.Add(1)
		return nil, fmt.Errorf("network error: %w", ctx.Err())
	})
	if snap.Status != StatusPending || !errors.Is(snap.Err, context.Canceled) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if got := c.Get(); got.Status != StatusPending || got.Err != nil {
		t.Fatalf("cancellation must not settle the cache, got %+v", got)
	}

	snap = c.Load(context.Background(), staticFetcher(&calls, "u1"))
	if snap.Status != StatusReady || calls.Load() != 2 {
		t.Fatalf("expected a fresh fetch after cancellation, snap=%+v calls=%d", snap, calls.Load())
	}
}
