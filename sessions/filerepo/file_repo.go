package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
)

var (
	_ sessions.Repo   = (*FileRepo)(nil)
	_ sessions.Locker = (*FileRepo)(nil)
)

var lockPollInterval = 20 * time.Millisecond

// FileRepo persists the client state as a JSON object in a single file. Writes
// go to a temp file that is renamed over the original.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

// New creates the parent directory of path if needed.
func New(path string) (*FileRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("[filerepo New] create directory: %w", err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return value, nil
}

func (r *FileRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	values[key] = value
	return r.write(values)
}

func (r *FileRepo) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return r.write(values)
}

// Lock uses an exclusive-create lock file next to the data file. The file
// holds an owner token; unlock removes it only while that token is still
// there. A lock file older than ttl is considered abandoned and taken over.
func (r *FileRepo) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	lockPath := r.path + "." + name + ".lock"
	owner := uuid.NewString()
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, writeErr := f.WriteString(owner)
			closeErr := f.Close()
			if writeErr != nil || closeErr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("[filerepo Lock] write owner: %w", errors.Join(writeErr, closeErr))
			}
			return func() { removeIfOwner(lockPath, owner) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("[filerepo Lock] %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > ttl {
			if stale, readErr := os.ReadFile(lockPath); readErr == nil {
				removeIfOwner(lockPath, string(stale))
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrapf(apperrors.ErrLockTimeout, "[filerepo Lock] %s: %v", name, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// removeIfOwner deletes the lock file only if it still carries owner.
func removeIfOwner(lockPath, owner string) {
	current, err := os.ReadFile(lockPath)
	if err != nil || string(current) != owner {
		return
	}
	_ = os.Remove(lockPath)
}

func (r *FileRepo) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filerepo] read: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		// A corrupt file is treated as empty rather than locking the user out
		return make(map[string]string), nil
	}
	return values, nil
}

func (r *FileRepo) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tempFile := r.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("[filerepo] write temp file: %w", err)
	}
	if err := os.Rename(tempFile, r.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("[filerepo] rename temp file: %w", err)
	}
	return nil
}
