// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketName is the single bucket holding all namespaced records.
var bucketName = []byte("vchat")

// =============================================================================
// BOLT KV
// =============================================================================

// BoltKV is a bbolt-backed KV. All records live in one bucket; logical
// namespaces are encoded in key prefixes.
type BoltKV struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the database file at path.
// The parent directory is created if missing. The open times out after
// one second so a stale lock from a crashed process fails fast instead
// of hanging.
func OpenBolt(path string) (*BoltKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltKV{db: db}, nil
}

// Get returns the value for key and whether it exists.
func (b *BoltKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			found = true
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Put stores value under key.
func (b *BoltKV) Put(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

// Delete removes key.
func (b *BoltKV) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// List returns all pairs under prefix in ascending key order.
func (b *BoltKV) List(prefix string) ([]Pair, error) {
	var pairs []Pair
	p := []byte(prefix)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			pairs = append(pairs, Pair{
				Key:   string(k),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Close closes the underlying database.
func (b *BoltKV) Close() error {
	return b.db.Close()
}
