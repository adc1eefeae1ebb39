package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"
)

const followBucket = "follows"

// boltStore implements a Store backed by BoltDB. Each key holds a JSON array of ids.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(followBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) ListFollows(userID string) ([]string, error) {
	return b.list(followingKey(userID))
}

func (b *boltStore) ListFollowedBy(userID string) ([]string, error) {
	return b.list(followedByKey(userID))
}

// Follow records both directions of the edge in one transaction.
func (b *boltStore) Follow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := followsBucket(tx)
		if err != nil {
			return err
		}
		if err := updateList(bucket, followingKey(userID), func(ids []string) []string { return withID(ids, targetID) }); err != nil {
			return err
		}
		return updateList(bucket, followedByKey(targetID), func(ids []string) []string { return withID(ids, userID) })
	})
}

// Unfollow removes both directions of the edge in one transaction.
func (b *boltStore) Unfollow(userID, targetID string) error {
	if err := validateIDs(userID, targetID); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := followsBucket(tx)
		if err != nil {
			return err
		}
		if err := updateList(bucket, followingKey(userID), func(ids []string) []string { return withoutID(ids, targetID) }); err != nil {
			return err
		}
		return updateList(bucket, followedByKey(targetID), func(ids []string) []string { return withoutID(ids, userID) })
	})
}

func (b *boltStore) AllFollows() (map[string][]string, error) {
	out := make(map[string][]string)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := followsBucket(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			key := string(k)
			if !strings.HasSuffix(key, followingSuffix) {
				return nil
			}
			ids, err := decodeIDs(v)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out[key] = ids
			return nil
		})
	})
	return out, err
}

// DeleteAll drops every follow list by recreating the bucket.
func (b *boltStore) DeleteAll() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(followBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(followBucket))
		return err
	})
}

func (b *boltStore) list(key string) ([]string, error) {
	var ids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := followsBucket(tx)
		if err != nil {
			return err
		}
		ids, err = decodeIDs(bucket.Get([]byte(key)))
		return err
	})
	return ids, err
}

func followsBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(followBucket))
	if bucket == nil {
		return nil, fmt.Errorf("follow bucket missing")
	}
	return bucket, nil
}

func updateList(bucket *bolt.Bucket, key string, fn func([]string) []string) error {
	ids, err := decodeIDs(bucket.Get([]byte(key)))
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	raw, err := json.Marshal(fn(ids))
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return bucket.Put([]byte(key), raw)
}

// decodeIDs treats a missing value as an empty list.
func decodeIDs(value []byte) ([]string, error) {
	if len(value) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(value, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
