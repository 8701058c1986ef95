package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
)

type StorageConfig interface {
	GetStorageDriver() string
	GetStoragePath() string
	GetRedisURL() string
	GetRefreshLockTTL() time.Duration
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageDriver() string {
	return GetEnv("STORAGE_DRIVER", StorageFile)
}

// GetStoragePath defaults to ~/.postpilot/session.json, or session.db for the bolt driver.
func (s Storage) GetStoragePath() string {
	if path := GetEnv("STORAGE_PATH", ""); path != "" {
		return path
	}
	name := "session.json"
	if s.GetStorageDriver() == StorageBolt {
		name = "session.db"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".postpilot", name)
	}
	return filepath.Join(home, ".postpilot", name)
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

// GetRefreshLockTTL must outlast a refresh request, see HTTP_TIMEOUT.
func (Storage) GetRefreshLockTTL() time.Duration {
	return GetEnvDuration("REFRESH_LOCK_TTL", 45*time.Second)
}
