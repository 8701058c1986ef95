package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/manishahirrao/postpilot/apiclient"
	"github.com/manishahirrao/postpilot/csrf"
	"github.com/manishahirrao/postpilot/identity"
	"github.com/manishahirrao/postpilot/identity/fakeprovider"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type testFixture struct {
	provider *fakeprovider.Server
	client   *identity.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := fakeprovider.New()
	t.Cleanup(provider.Close)

	httpClient := apiclient.NewHTTPClient(5 * time.Second)
	csrfProvider, err := csrf.NewProvider(provider.URL, httpClient)
	require.NoError(t, err)

	api := apiclient.New(provider.URL, apiclient.WithHTTPClient(httpClient), apiclient.WithCSRF(csrfProvider))
	return &testFixture{provider: provider, client: identity.NewClient(api)}
}

func TestToSessionExpiryResolution(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	session, err := (&identity.SessionPayload{AccessToken: "t", ExpiresAt: 42, ExpiresIn: 3600}).ToSession(now)
	require.NoError(t, err)
	require.EqualValues(t, 42, session.ExpiresAt)
	require.Equal(t, "Bearer", session.TokenType)

	session, err = (&identity.SessionPayload{AccessToken: "t", ExpiresIn: 3600}).ToSession(now)
	require.NoError(t, err)
	require.Equal(t, now.Unix()+3600, session.ExpiresAt)

	exp := now.Add(time.Hour).Unix()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{"exp": exp}).SignedString([]byte("k"))
	require.NoError(t, err)
	session, err = (&identity.SessionPayload{AccessToken: raw}).ToSession(now)
	require.NoError(t, err)
	require.Equal(t, exp, session.ExpiresAt)

	session, err = (&identity.SessionPayload{AccessToken: "opaque"}).ToSession(now)
	require.NoError(t, err)
	require.Zero(t, session.ExpiresAt)
}

func TestToSessionRequiresAccessToken(t *testing.T) {
	_, err := (&identity.SessionPayload{RefreshToken: "r", ExpiresIn: 10}).ToSession(time.Now())
	require.ErrorIs(t, err, apperrors.ErrMalformedPayload)

	var nilPayload *identity.SessionPayload
	_, err = nilPayload.ToSession(time.Now())
	require.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.Reply(identity.LoginPath, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{"id": "u1", "email": "jane@example.com", "account_type": "personal"},
		"session": map[string]any{"access_token": "t", "expires_in": 3600},
	})

	resp, err := f.client.Login(context.Background(), identity.Credentials{Email: "jane@example.com", Password: "Secret123", AccountType: users.AccountPersonal})
	require.NoError(t, err)
	require.Equal(t, "u1", resp.User.ID)
	require.Equal(t, "t", resp.Session.AccessToken)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(f.provider.LastBody(identity.LoginPath), &sent))
	require.Equal(t, "jane@example.com", sent["email"])
	require.Equal(t, "personal", sent["account_type"])
	require.Equal(t, "csrf-token", sent["_csrf"])
	require.Empty(t, f.provider.LastAuthorization(identity.LoginPath))
}

func TestLoginRejected(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.Reply(identity.LoginPath, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})

	_, err := f.client.Login(context.Background(), identity.Credentials{Email: "a@b.c", Password: "x"})
	require.ErrorIs(t, err, apperrors.ErrLoginFailed)
	require.Equal(t, apperrors.KindValidation, apperrors.Classify(err))
	require.Equal(t, "Invalid credentials", apperrors.UserMessage(err))

	f.provider.Reply(identity.LoginPath, http.StatusOK, map[string]any{"success": false, "message": "Account locked"})
	_, err = f.client.Login(context.Background(), identity.Credentials{Email: "a@b.c", Password: "x"})
	require.ErrorIs(t, err, apperrors.ErrLoginFailed)
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.Reply(identity.RefreshPath, http.StatusOK, map[string]any{
		"success": true,
		"session": map[string]any{"access_token": "new", "refresh_token": "r2", "expires_at": 99},
	})

	session, err := f.client.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "new", session.AccessToken)
	require.Equal(t, "r2", session.RefreshToken)
	require.JSONEq(t, `{"refresh_token":"r1","_csrf":"csrf-token"}`, string(f.provider.LastBody(identity.RefreshPath)))
}

func TestRefreshFailures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.Reply(identity.RefreshPath, http.StatusUnauthorized, map[string]any{"success": false})
	_, err := f.client.Refresh(ctx, "r1")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	f.provider.Reply(identity.RefreshPath, http.StatusOK, map[string]any{"success": true, "session": map[string]any{}})
	_, err = f.client.Refresh(ctx, "r1")
	require.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestMeAppliesProfileDefaults(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.AcceptTokens("good")
	f.provider.Reply(identity.MePath, http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{"id": "u1", "email": "acme.team@example.com", "account_type": "company"},
	})
	ctx := context.Background()

	user, err := f.client.Me(ctx, &oauth2.Token{AccessToken: "good"})
	require.NoError(t, err)
	require.Equal(t, users.AccountCompany, user.AccountType)
	require.Equal(t, users.PlanFree, user.Profile.SubscriptionPlan)
	require.Equal(t, 50, user.Profile.MaxCredits)
	require.Equal(t, "Bearer good", f.provider.LastAuthorization(identity.MePath))

	_, err = f.client.Me(ctx, &oauth2.Token{AccessToken: "bad"})
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.Reply(identity.RegisterPath, http.StatusOK, map[string]any{
		"success": true,
		"message": "Check your inbox",
		"user":    map[string]any{"id": "u2", "email": "new@example.com", "account_type": "personal"},
	})

	resp, err := f.client.Register(context.Background(), identity.Registration{Email: "new@example.com", Password: "Secret123", AccountType: users.AccountPersonal, FullName: "New User"})
	require.NoError(t, err)
	require.Nil(t, resp.Session)
	require.Equal(t, "Check your inbox", resp.Message)
}
