package fakesessionrepo

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
)

var (
	_ sessions.Repo   = (*FakeSessionRepo)(nil)
	_ sessions.Locker = (*FakeSessionRepo)(nil)
)

// lockPollInterval is how often a blocked Lock re-checks the lock table.
var lockPollInterval = 5 * time.Millisecond

// FakeSessionRepo is an in-memory Repo and Locker. It backs tests and the
// "memory" storage driver.
type FakeSessionRepo struct {
	values map[string]string
	locks  map[string]lockEntry // lock name -> holder
	lock   sync.RWMutex
	seq    uint64
}

type lockEntry struct {
	id      uint64
	expires time.Time
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string]string),
		locks:  make(map[string]lockEntry),
	}
}

func (sr *FakeSessionRepo) Get(_ context.Context, key string) (string, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	value, ok := sr.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return value, nil
}

func (sr *FakeSessionRepo) Set(_ context.Context, key, value string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.values[key] = value
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, keys ...string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for _, key := range keys {
		delete(sr.values, key)
	}
	return nil
}

// Snapshot copies the stored values (test helper)
func (sr *FakeSessionRepo) Snapshot() map[string]string {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	out := make(map[string]string, len(sr.values))
	for k, v := range sr.values {
		out[k] = v
	}
	return out
}

func (sr *FakeSessionRepo) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	for {
		if id, ok := sr.tryLock(name, ttl); ok {
			return func() { sr.unlock(name, id) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrapf(apperrors.ErrLockTimeout, "[FakeSessionRepo Lock] %s: %v", name, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

func (sr *FakeSessionRepo) tryLock(name string, ttl time.Duration) (uint64, bool) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	now := time.Now()
	if held, ok := sr.locks[name]; ok && now.Before(held.expires) {
		return 0, false
	}
	sr.seq++
	sr.locks[name] = lockEntry{id: sr.seq, expires: now.Add(ttl)}
	return sr.seq, true
}

func (sr *FakeSessionRepo) unlock(name string, id uint64) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	// An expired lock may have been taken over; only the holder releases it
	if held, ok := sr.locks[name]; ok && held.id == id {
		delete(sr.locks, name)
	}
}
