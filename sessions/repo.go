package sessions

import (
	"context"
	"time"
)

// Repo is the persisted client state: a flat string key/value store that
// plays the role browser storage had for the web front-end.
type Repo interface {
	// Get returns errors.ErrNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)

	// Set creates or overwrites a key
	Set(ctx context.Context, key, value string) error

	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
}

// Locker is a storage-level mutex with expiry. A lock whose holder dies is
// released automatically once ttl elapses.
type Locker interface {
	// Lock blocks until the named lock is held or ctx is done
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}
