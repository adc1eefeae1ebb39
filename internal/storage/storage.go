package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps the follow graph of the reference endpoint.

// Store tracks who follows whom. Keys follow the plugin KV layout:
// "<user>:following" and "<user>:followed_by".
type Store interface {
	Close() error
	ListFollows(userID string) ([]string, error)
	ListFollowedBy(userID string) ([]string, error)
	Follow(userID, targetID string) error
	Unfollow(userID, targetID string) error
	AllFollows() (map[string][]string, error)
	DeleteAll() error
}

// Options controls characteristics of concrete store implementations.
type Options struct {
	OpenTimeout time.Duration
}

const defaultOpenTimeout = time.Second

const (
	followingSuffix  = ":following"
	followedBySuffix = ":followed_by"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "memory":
		return newMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case "redis":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		return openRedis(strings.TrimSpace(path), opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	return opts
}

func followingKey(userID string) string  { return userID + followingSuffix }
func followedByKey(userID string) string { return userID + followedBySuffix }

// withID appends id unless present.
func withID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// withoutID drops every occurrence of id.
func withoutID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func validateIDs(userID, targetID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("follow id is required")
	}
	return nil
}
