package csrf_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/manishahirrao/postpilot/csrf"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server   *httptest.Server
	client   *http.Client
	calls    atomic.Int32
	failures int32
	sleeps   []time.Duration
	provider *csrf.Provider
}

// setupTestFixture serves a token endpoint that fails the first failures calls.
func setupTestFixture(t *testing.T, failures int32) *testFixture {
	t.Helper()

	f := &testFixture{failures: failures}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != csrf.TokenPath {
			http.NotFound(w, r)
			return
		}
		n := f.calls.Add(1)
		if n <= f.failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"success":true,"csrfToken":"token-%d"}`, n)
	}))
	t.Cleanup(f.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{Jar: jar}

	f.provider, err = csrf.NewProvider(f.server.URL, f.client, csrf.WithSleep(func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}))
	require.NoError(t, err)
	return f
}

func TestTokenIsFetchedOnceAndCached(t *testing.T) {
	f := setupTestFixture(t, 0)
	ctx := context.Background()

	token, err := f.provider.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-1", token)

	token, err = f.provider.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-1", token)
	require.EqualValues(t, 1, f.calls.Load())
}

func TestCookieTakesPrecedence(t *testing.T) {
	f := setupTestFixture(t, 0)
	u, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	f.client.Jar.SetCookies(u, []*http.Cookie{{Name: csrf.DefaultCookieName, Value: "from%20cookie", Path: "/"}})

	token, err := f.provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from cookie", token)
	require.Zero(t, f.calls.Load())
}

func TestFetchRetriesWithLinearBackoff(t *testing.T) {
	f := setupTestFixture(t, 2)

	token, err := f.provider.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "token-3", token)
	require.EqualValues(t, 3, f.calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps)
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	f := setupTestFixture(t, 10)

	_, err := f.provider.Token(context.Background())
	require.ErrorIs(t, err, apperrors.ErrCSRFUnavailable)
	require.EqualValues(t, 3, f.calls.Load())
	require.Equal(t, apperrors.KindForbidden, apperrors.Classify(err))
}

func TestRefreshAlwaysFetches(t *testing.T) {
	f := setupTestFixture(t, 0)
	ctx := context.Background()

	_, err := f.provider.Token(ctx)
	require.NoError(t, err)

	token, err := f.provider.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-2", token)

	token, err = f.provider.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "token-2", token)
	require.EqualValues(t, 2, f.calls.Load())
}

func TestEmptyTokenCountsAsFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"success":false,"csrfToken":""}`))
	}))
	defer server.Close()

	provider, err := csrf.NewProvider(server.URL, server.Client(), csrf.WithRetries(1, 0))
	require.NoError(t, err)

	_, err = provider.Token(context.Background())
	require.ErrorIs(t, err, apperrors.ErrCSRFUnavailable)
	require.EqualValues(t, 2, calls.Load())
}
