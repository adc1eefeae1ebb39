package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tcg-hq/followers/internal/domain"
)

// FollowedUsersKey is the key the followed-ids query is cached under.
const FollowedUsersKey = "followedUsers"

// Status is the lifecycle position of the cached query.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Snapshot is a read of the cache. Set is a private copy.
type Snapshot struct {
	Status Status
	Set    domain.RelationshipSet
	Err    error
}

// Fetcher loads the relationship set from the server.
type Fetcher func(ctx context.Context) (domain.RelationshipSet, error)

// Cache holds the relationship set of one mounted session. It is filled by a
// single fetch and afterwards changed only by ApplyFollow/ApplyUnfollow.
type Cache struct {
	key    string
	flight singleflight.Group

	mu     sync.RWMutex
	gen    uint64
	status Status
	set    domain.RelationshipSet
	err    error
}

// New returns an empty cache in the pending state.
func New(key string) *Cache {
	if key == "" {
		key = FollowedUsersKey
	}
	return &Cache{key: key}
}

func (c *Cache) Key() string { return c.key }

// Load runs fetch once for the lifetime of the cache. Concurrent callers wait
// on the same fetch; once settled (ready or error) Load returns the stored
// result without calling fetch again.
//
// A fetch that ends in context.Canceled does not settle the cache: the returned
// snapshot carries the error but the cache stays pending. A fetch that finishes
// after Discard is dropped.
func (c *Cache) Load(ctx context.Context, fetch Fetcher) Snapshot {
	if snap := c.Get(); snap.Status != StatusPending {
		return snap
	}

	_, err, _ := c.flight.Do(c.key, func() (interface{}, error) {
		c.mu.RLock()
		gen, status := c.gen, c.status
		c.mu.RUnlock()
		if status != StatusPending {
			return nil, nil
		}
		set, err := fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return nil, nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			c.status, c.set, c.err = StatusError, nil, err
			return nil, nil
		}
		if set == nil {
			set = domain.NewRelationshipSet()
		}
		c.status, c.set, c.err = StatusReady, set.Clone(), nil
		return nil, nil
	})
	snap := c.Get()
	if err != nil && snap.Status == StatusPending {
		snap.Err = err
	}
	return snap
}

// Get returns the current snapshot.
func (c *Cache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Status: c.status, Err: c.err}
	if c.set != nil {
		snap.Set = c.set.Clone()
	}
	return snap
}

// ApplyFollow inserts id after a successful follow. It reports false when the
// cache holds no set yet, in which case nothing changes.
func (c *Cache) ApplyFollow(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusReady {
		return false
	}
	c.set.Add(id)
	return true
}

// ApplyUnfollow removes id after a successful unfollow; see ApplyFollow.
func (c *Cache) ApplyUnfollow(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusReady {
		return false
	}
	c.set.Remove(id)
	return true
}

// Discard drops the cached set. The next Load fetches again, and a fetch still
// in flight is not stored.
func (c *Cache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.status, c.set, c.err = StatusPending, nil, nil
	c.flight.Forget(c.key)
}
