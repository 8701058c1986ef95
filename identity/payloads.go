package identity

import (
	"time"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/manishahirrao/postpilot/token/jwt"
	"github.com/manishahirrao/postpilot/users"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	AccountType users.AccountType `json:"account_type"`
}

// Registration is posted to the register endpoint.
type Registration struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	AccountType users.AccountType `json:"account_type"`
	FullName    string            `json:"full_name"`
	Headline    string            `json:"headline,omitempty"`
	CompanyName string            `json:"company_name,omitempty"`
	Industry    string            `json:"industry,omitempty"`
	Plan        string            `json:"plan,omitempty"`
}

// SessionPayload is the session object returned by login, register and refresh.
type SessionPayload struct {
	// AccessToken is the JWT sent as "Authorization: Bearer <access_token>".
	// A payload without one is malformed.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at /auth/refresh for a new session.
	// Refresh responses may omit it, in which case the previous one stays valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is "bearer"
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds (e.g., 3600)
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry in unix seconds. Preferred over ExpiresIn when present.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// AuthResponse is the body of login and register responses.
type AuthResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	User    *users.User     `json:"user,omitempty"`
	Session *SessionPayload `json:"session,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Session *SessionPayload `json:"session,omitempty"`
}

type meResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *users.User `json:"user,omitempty"`
}

// ToSession converts the payload into a storable session. The expiry comes
// from expires_at, else now+expires_in, else the access token's exp claim.
func (p *SessionPayload) ToSession(now time.Time) (sessions.Session, error) {
	if p == nil || p.AccessToken == "" {
		return sessions.Session{}, apperrors.Wrapf(apperrors.ErrMalformedPayload, "[SessionPayload ToSession] missing access token")
	}

	expiresAt := p.ExpiresAt
	if expiresAt <= 0 && p.ExpiresIn > 0 {
		expiresAt = now.Unix() + p.ExpiresIn
	}
	if expiresAt <= 0 {
		if claims, err := jwt.Inspect(p.AccessToken); err == nil {
			expiresAt = claims.ExpiresAt
		}
	}

	tokenType := p.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return sessions.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    tokenType,
	}, nil
}
