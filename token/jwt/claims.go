package jwt

import (
	"errors"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
)

// Claims are the access token fields the client cares about. The identity
// provider remains the authority; these are read for expiry fallbacks and
// display only.
type Claims struct {
	Subject     string `json:"sub,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	AccountType string `json:"account_type,omitempty"`
	Issuer      string `json:"iss,omitempty"`
	ExpiresAt   int64  `json:"exp,omitempty"`
	IssuedAt    int64  `json:"iat,omitempty"`
}

// Inspect parses raw without verifying its signature.
func Inspect(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[jwt Inspect] %v", err)
	}
	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[jwt Inspect] error extracting claims")
	}
	return fromMapClaims(mapClaims), nil
}

func fromMapClaims(mc jwtlib.MapClaims) *Claims {
	c := &Claims{}
	c.Subject, _ = mc.GetSubject()
	c.Issuer, _ = mc.GetIssuer()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Unix()
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Unix()
	}
	c.Email, _ = mc["email"].(string)
	c.Role, _ = mc["role"].(string)

	c.AccountType, _ = mc["account_type"].(string)
	if c.AccountType == "" {
		// Supabase keeps sign-up fields under user_metadata
		if meta, ok := mc["user_metadata"].(map[string]any); ok {
			c.AccountType, _ = meta["account_type"].(string)
		}
	}
	return c
}
