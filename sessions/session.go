package sessions

import (
	"time"

	"golang.org/x/oauth2"
)

// DefaultRefreshBuffer is the margin before expiry within which a token is
// already treated as expired, so in-flight requests never race the deadline.
const DefaultRefreshBuffer = 300 * time.Second

// Persisted client state keys.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyTokenExpiresAt = "token_expires_at"
)

// Session is the access/refresh token pair and its expiry.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
	TokenType    string `json:"token_type,omitempty"`
}

// IsValid reports whether the session may be used at now: now < expires_at - buffer.
func (s Session) IsValid(now time.Time, buffer time.Duration) bool {
	if s.AccessToken == "" || s.ExpiresAt <= 0 {
		return false
	}
	return now.Unix() < s.ExpiresAt-int64(buffer/time.Second)
}

// Expiry returns ExpiresAt as a time, or the zero time if unknown.
func (s Session) Expiry() time.Time {
	if s.ExpiresAt <= 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// OAuth2Token converts the session into the token shape used to set bearer headers.
func (s Session) OAuth2Token() *oauth2.Token {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    tokenType,
		Expiry:       s.Expiry(),
	}
}
