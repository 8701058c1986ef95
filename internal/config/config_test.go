package config_test

import (
	"testing"
	"time"

	"github.com/manishahirrao/postpilot/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"API_BASE_URL", "REFRESH_BUFFER_SECONDS", "CSRF_MAX_RETRIES", "CSRF_RETRY_DELAY", "STORAGE_DRIVER", "STORAGE_PATH", "REFRESH_LOCK_TTL", "HTTP_TIMEOUT"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, "http://localhost:5000", c.GetAPIBaseURL())
	require.Equal(t, 300*time.Second, c.GetRefreshBuffer())
	require.Equal(t, 2, c.GetCSRFMaxRetries())
	require.Equal(t, time.Second, c.GetCSRFRetryDelay())
	require.Equal(t, config.StorageFile, c.GetStorageDriver())
	require.Contains(t, c.GetStoragePath(), "session.json")
	require.Greater(t, c.GetRefreshLockTTL(), c.GetHTTPTimeout())
}

func TestOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.postpilot.ai/")
	t.Setenv("REFRESH_BUFFER_SECONDS", "60")
	t.Setenv("CSRF_RETRY_DELAY", "250ms")
	t.Setenv("REFRESH_LOCK_TTL", "3")
	t.Setenv("STORAGE_DRIVER", config.StorageBolt)
	t.Setenv("STORAGE_PATH", "")
	c := config.New()

	require.Equal(t, "https://api.postpilot.ai", c.GetAPIBaseURL())
	require.Equal(t, time.Minute, c.GetRefreshBuffer())
	require.Equal(t, 250*time.Millisecond, c.GetCSRFRetryDelay())
	require.Equal(t, 3*time.Second, c.GetRefreshLockTTL())
	require.Contains(t, c.GetStoragePath(), "session.db")
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CSRF_MAX_RETRIES", "lots")
	t.Setenv("HTTP_TIMEOUT", "soon")
	c := config.New()

	require.Equal(t, 2, c.GetCSRFMaxRetries())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
}
