package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	apiBaseURLVar = "API_BASE_URL"
	logLevelVar   = "LOG_LEVEL"
	logFormatVar  = "LOG_FORMAT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "PostPilot")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

// GetAPIBaseURL returns the backend base URL without a trailing slash
// (e.g., "https://api.postpilot.ai"). The auth and csrf endpoints hang off it.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:5000"), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetLogFormat() string {
	return GetEnv(logFormatVar, "console")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration accepts Go durations ("1500ms") or whole seconds ("2").
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envVar); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
