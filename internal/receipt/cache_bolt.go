package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const cacheBucketName = "receipt_cache"

// BoltStore implements the CacheStore interface using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens or creates the cache database at path
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get retrieves the entry for hash
func (b *BoltStore) Get(hash string) (*CacheEntry, error) {
	var entry *CacheEntry
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(cacheBucketName)).Get([]byte(hash))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w", hash, err)
	}
	return entry, nil
}

// Put saves the entry under hash
func (b *BoltStore) Put(hash string, entry *CacheEntry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling cache entry: %w", err)
		}
		return tx.Bucket([]byte(cacheBucketName)).Put([]byte(hash), data)
	})
}

// Scan visits every entry in key order
func (b *BoltStore) Scan(fn func(hash string, entry *CacheEntry) error) error {
	// Collect first so fn may call Put without deadlocking on the read transaction
	type item struct {
		hash  string
		entry *CacheEntry
	}
	var items []item
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cacheBucketName)).ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling cache entry: %w", err)
			}
			items = append(items, item{hash: string(k), entry: &entry})
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, it := range items {
		if err := fn(it.hash, it.entry); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}
