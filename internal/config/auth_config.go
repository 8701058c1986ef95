package config

import "time"

type AuthConfig interface {
	GetRefreshBuffer() time.Duration
	GetCSRFCookieName() string
	GetCSRFMaxRetries() int
	GetCSRFRetryDelay() time.Duration
	GetHTTPTimeout() time.Duration
	GetJWKSURL() string
	GetTokenIssuer() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetRefreshBuffer is the window before expiry in which a token already counts as expired.
func (Auth) GetRefreshBuffer() time.Duration {
	return time.Duration(GetEnvInt("REFRESH_BUFFER_SECONDS", 300)) * time.Second
}

func (Auth) GetCSRFCookieName() string {
	return GetEnv("CSRF_COOKIE_NAME", "XSRF-TOKEN")
}

func (Auth) GetCSRFMaxRetries() int {
	return GetEnvInt("CSRF_MAX_RETRIES", 2)
}

func (Auth) GetCSRFRetryDelay() time.Duration {
	return GetEnvDuration("CSRF_RETRY_DELAY", time.Second)
}

func (Auth) GetHTTPTimeout() time.Duration {
	return GetEnvDuration("HTTP_TIMEOUT", 30*time.Second)
}

// GetJWKSURL enables local access token verification when set
// (e.g., "https://<project>.supabase.co/auth/v1/.well-known/jwks.json").
func (Auth) GetJWKSURL() string {
	return GetEnv("JWKS_URL", "")
}

func (Auth) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "")
}
