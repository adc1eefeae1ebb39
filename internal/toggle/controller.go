package toggle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tcg-hq/followers/internal/domain"
	"github.com/tcg-hq/followers/internal/logger"
	"github.com/tcg-hq/followers/internal/querycache"
	"github.com/tcg-hq/followers/pkg/cookies"
)

var (
	// ErrPending is returned when a mutation is submitted while another is in flight.
	ErrPending = errors.New("toggle: mutation already in flight")
	// ErrNotReady is returned when a mutation is submitted before the follow list loaded.
	ErrNotReady = errors.New("toggle: relationship set not loaded")
)

// Phase is the coarse controller state.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseError
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseError:
		return "error"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Action is the button offered while Ready.
type Action int

const (
	ShowFollow Action = iota
	ShowUnfollow
)

func (a Action) String() string {
	if a == ShowUnfollow {
		return "unfollow"
	}
	return "follow"
}

// State is what the presentation layer renders from.
type State struct {
	Phase       Phase
	Action      Action
	Pending     bool
	Err         error
	LastFailure string
}

// Transport is the subset of the follow API the controller drives.
type Transport interface {
	FetchFollowedIDs(ctx context.Context) (domain.RelationshipSet, error)
	Follow(ctx context.Context, token, targetID string) domain.MutationOutcome
	Unfollow(ctx context.Context, token, targetID string) domain.MutationOutcome
}

// Evaluate picks the action available to actorID given the followed set.
func Evaluate(set domain.RelationshipSet, actorID string) Action {
	if set.Contains(actorID) {
		return ShowUnfollow
	}
	return ShowFollow
}

// Controller ties one actor's cached relationship set to the follow endpoint.
type Controller struct {
	actorID   string
	cache     *querycache.Cache
	transport Transport
	tokens    cookies.TokenSource
	log       logger.Logger

	pending atomic.Bool

	mu          sync.Mutex
	lastFailure string
}

// New builds a controller. A nil cache gets a fresh one; a nil token source
// sends empty CSRF tokens.
func New(actorID string, cache *querycache.Cache, transport Transport, tokens cookies.TokenSource, log logger.Logger) *Controller {
	if cache == nil {
		cache = querycache.New(querycache.FollowedUsersKey)
	}
	if tokens == nil {
		tokens = cookies.CSRF{}
	}
	return &Controller{
		actorID:   actorID,
		cache:     cache,
		transport: transport,
		tokens:    tokens,
		log:       logger.Ensure(log),
	}
}

func (c *Controller) ActorID() string { return c.actorID }

// Load fills the cache on first use and returns the resulting state.
func (c *Controller) Load(ctx context.Context) State {
	snap := c.cache.Load(ctx, c.transport.FetchFollowedIDs)
	if snap.Status == querycache.StatusError {
		c.log.WarnObj("followed users query failed", "follow_query_error", map[string]any{
			"actor_id": c.actorID,
			"error":    snap.Err.Error(),
		})
	} else if snap.Err != nil {
		c.log.DebugObj("followed users query abandoned", "follow_query_error", map[string]any{
			"actor_id": c.actorID,
			"error":    snap.Err.Error(),
		})
	}
	return c.State()
}

// State reports the current phase, the available action and whether a
// mutation is in flight.
func (c *Controller) State() State {
	snap := c.cache.Get()

	c.mu.Lock()
	st := State{Pending: c.pending.Load(), LastFailure: c.lastFailure}
	c.mu.Unlock()

	switch snap.Status {
	case querycache.StatusReady:
		st.Phase = PhaseReady
		st.Action = Evaluate(snap.Set, c.actorID)
	case querycache.StatusError:
		st.Phase = PhaseError
		st.Err = snap.Err
	default:
		st.Phase = PhaseLoading
	}
	return st
}

// SubmitFollow follows targetID and records it in the cache on success.
func (c *Controller) SubmitFollow(ctx context.Context, targetID string) (domain.MutationOutcome, error) {
	return c.submit(ctx, ShowFollow, targetID)
}

// SubmitUnfollow unfollows targetID and drops it from the cache on success.
func (c *Controller) SubmitUnfollow(ctx context.Context, targetID string) (domain.MutationOutcome, error) {
	return c.submit(ctx, ShowUnfollow, targetID)
}

// Toggle runs the action currently offered for the actor.
func (c *Controller) Toggle(ctx context.Context) (domain.MutationOutcome, error) {
	st := c.State()
	if st.Phase != PhaseReady {
		return domain.MutationOutcome{}, ErrNotReady
	}
	return c.submit(ctx, st.Action, c.actorID)
}

func (c *Controller) submit(ctx context.Context, action Action, targetID string) (domain.MutationOutcome, error) {
	if c.cache.Get().Status != querycache.StatusReady {
		return domain.MutationOutcome{}, ErrNotReady
	}
	if !c.pending.CompareAndSwap(false, true) {
		return domain.MutationOutcome{}, ErrPending
	}
	defer c.pending.Store(false)

	token := c.tokens.CSRFToken()
	var out domain.MutationOutcome
	if action == ShowUnfollow {
		out = c.transport.Unfollow(ctx, token, targetID)
	} else {
		out = c.transport.Follow(ctx, token, targetID)
	}

	if !out.OK {
		c.setLastFailure(out.Reason)
		fields := map[string]any{
			"actor_id":  c.actorID,
			"target_id": targetID,
			"action":    action.String(),
			"reason":    out.Reason,
		}
		if out.Err != nil {
			fields["error"] = out.Err.Error()
		}
		c.log.WarnObj("follow mutation failed", "follow_mutation_error", fields)
		return out, nil
	}

	if action == ShowUnfollow {
		c.cache.ApplyUnfollow(targetID)
	} else {
		c.cache.ApplyFollow(targetID)
	}
	c.setLastFailure("")
	c.log.DebugObj("follow mutation applied", "follow_mutation", map[string]any{
		"actor_id":  c.actorID,
		"target_id": targetID,
		"action":    action.String(),
	})
	return out, nil
}

func (c *Controller) setLastFailure(reason string) {
	c.mu.Lock()
	c.lastFailure = reason
	c.mu.Unlock()
}
