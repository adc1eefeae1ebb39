package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "followers:"
	redisOpTimeout = 5 * time.Second
	redisScanCount = 200
)

// redisStore keeps each follow list as a Redis sorted set under the plugin key
// layout, namespaced with redisKeyPrefix. Members are scored by the time they
// were first added, so lists come back in insertion order like the other
// backends.
type redisStore struct {
	client *redis.Client
}

// openRedis connects using a redis:// URL and verifies the connection.
func openRedis(rawURL string, opts Options) (Store, error) {
	ropts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	ropts.DialTimeout = opts.OpenTimeout

	client := redis.NewClient(ropts)
	ctx, cancel := context.WithTimeout(context.Background(), opts.OpenTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (r *redisStore) Close() error { return r.client.Close() }

func (r *redisStore) ListFollows(userID string) ([]string, error) {
	return r.members(followingKey(userID))
}

func (r *redisStore) ListFollowedBy(userID string) ([]string, error) {
	return r.members(followedByKey(userID))
}

// Follow adds both directions of the edge in one MULTI/EXEC.
func (r *redisStore) Follow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	ctx, cancel := opContext()
	defer cancel()
	score := float64(time.Now().UnixMicro())
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, redisKeyPrefix+followingKey(userID), redis.Z{Score: score, Member: targetID})
		pipe.ZAddNX(ctx, redisKeyPrefix+followedByKey(targetID), redis.Z{Score: score, Member: userID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis follow: %w", err)
	}
	return nil
}

// Unfollow removes both directions of the edge in one MULTI/EXEC.
func (r *redisStore) Unfollow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, redisKeyPrefix+followingKey(userID), targetID)
		pipe.ZRem(ctx, redisKeyPrefix+followedByKey(targetID), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis unfollow: %w", err)
	}
	return nil
}

func (r *redisStore) AllFollows() (map[string][]string, error) {
	keys, err := r.scan("*" + followingSuffix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, redisKeyPrefix)
		ids, err := r.members(name)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			out[name] = ids
		}
	}
	return out, nil
}

func (r *redisStore) DeleteAll() error {
	keys, err := r.scan("*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := opContext()
	defer cancel()
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete all: %w", err)
	}
	return nil
}

// members returns the list at key (without prefix) oldest first.
func (r *redisStore) members(key string) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()
	ids, err := r.client.ZRange(ctx, redisKeyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange %s: %w", key, err)
	}
	return ids, nil
}

// scan lists prefixed keys matching pattern.
func (r *redisStore) scan(pattern string) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()
	var keys []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+pattern, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}
