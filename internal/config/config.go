package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	AuthConfig
	StorageConfig
	ContentConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetLogLevel() string
	GetLogFormat() string
}

type mainConfig struct {
	EnvVars
	Auth
	Storage
	Content
}

// New loads an optional .env file from the working directory and returns the
// environment backed configuration.
func New() Config {
	_ = godotenv.Load(".env")
	return mainConfig{}
}
