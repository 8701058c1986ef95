package jwt_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/token/jwt"
	"github.com/stretchr/testify/require"
)

const issuer = "https://project.supabase.co/auth/v1"

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestInspectReadsClaimsWithoutVerifying(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":           "user-1",
		"email":         "jane@example.com",
		"exp":           exp,
		"role":          "authenticated",
		"user_metadata": map[string]any{"account_type": "company"},
	}).SignedString([]byte("not-known-to-the-client"))
	require.NoError(t, err)

	claims, err := jwt.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "jane@example.com", claims.Email)
	require.Equal(t, exp, claims.ExpiresAt)
	require.Equal(t, "company", claims.AccountType)
	require.Equal(t, "authenticated", claims.Role)
}

func TestInspectRejectsGarbage(t *testing.T) {
	_, err := jwt.Inspect("")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = jwt.Inspect("opaque-token")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier := jwt.NewVerifierWithKeySet(issuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}})
	ctx := context.Background()

	good := signRS256(t, key, jwtlib.MapClaims{"iss": issuer, "sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	claims, err := verifier.Verify(ctx, good)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	forged := signRS256(t, other, jwtlib.MapClaims{"iss": issuer, "sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = verifier.Verify(ctx, forged)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	wrongIssuer := signRS256(t, key, jwtlib.MapClaims{"iss": "https://evil.example", "sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = verifier.Verify(ctx, wrongIssuer)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
