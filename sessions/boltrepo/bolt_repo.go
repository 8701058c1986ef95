package boltrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	bolt "go.etcd.io/bbolt"
)

var _ sessions.Repo = (*BoltRepo)(nil)

const defaultBucket = "session"

// BoltRepo persists the client state in a bbolt bucket. bbolt holds an
// exclusive file lock while open, so the database itself serializes processes
// and no separate Locker is provided.
type BoltRepo struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the database file and ensures the bucket exists.
func Open(path string) (*BoltRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[boltrepo Open] create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("[boltrepo Open] %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(defaultBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("[boltrepo Open] create bucket: %w", err)
	}

	return &BoltRepo{db: db, bucket: []byte(defaultBucket)}, nil
}

func (r *BoltRepo) Get(_ context.Context, key string) (string, error) {
	var value []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(r.bucket).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("[boltrepo Get] %w", err)
	}
	if value == nil {
		return "", apperrors.ErrNotFound
	}
	return string(value), nil
}

func (r *BoltRepo) Set(_ context.Context, key, value string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(r.bucket).Put([]byte(key), []byte(value))
	})
}

func (r *BoltRepo) Delete(_ context.Context, keys ...string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (r *BoltRepo) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
