package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	fakesessionrepo "github.com/manishahirrao/postpilot/sessions/repofakes"
	"github.com/stretchr/testify/require"
)

func TestIsValidHonoursBuffer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name      string
		expiresAt int64
		valid     bool
	}{
		{"well before expiry", now.Unix() + 7200, true},
		{"inside buffer", now.Unix() + 600 - 301, false},
		{"exactly at buffer edge", now.Unix() + 300, false},
		{"one second outside buffer", now.Unix() + 301, true},
		{"already expired", now.Unix() - 10, false},
		{"unknown expiry", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessions.Session{AccessToken: "t", ExpiresAt: tt.expiresAt}
			require.Equal(t, tt.valid, s.IsValid(now, sessions.DefaultRefreshBuffer))
		})
	}
}

func TestOAuth2TokenDefaultsToBearer(t *testing.T) {
	tok := sessions.Session{AccessToken: "abc", ExpiresAt: 10}.OAuth2Token()
	require.Equal(t, "Bearer", tok.Type())
	require.Equal(t, time.Unix(10, 0), tok.Expiry)
}

func TestStoreLoadSaveClear(t *testing.T) {
	ctx := context.Background()
	repo := fakesessionrepo.NewFakeSessionRepo()
	store := sessions.NewStore(repo)

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, apperrors.ErrNoSession)

	require.NoError(t, store.Save(ctx, sessions.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1234}))
	require.Equal(t, map[string]string{
		sessions.KeyAccessToken:    "a",
		sessions.KeyRefreshToken:   "r",
		sessions.KeyTokenExpiresAt: "1234",
	}, repo.Snapshot())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", loaded.AccessToken)
	require.Equal(t, "r", loaded.RefreshToken)
	require.EqualValues(t, 1234, loaded.ExpiresAt)

	rt, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "r", rt)

	require.NoError(t, store.Clear(ctx))
	require.Empty(t, repo.Snapshot())
}

func TestStoreSaveKeepsRefreshTokenWhenOmitted(t *testing.T) {
	ctx := context.Background()
	repo := fakesessionrepo.NewFakeSessionRepo()
	store := sessions.NewStore(repo)

	require.NoError(t, store.Save(ctx, sessions.Session{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 1}))
	require.NoError(t, store.Save(ctx, sessions.Session{AccessToken: "a2", ExpiresAt: 2}))

	require.Equal(t, "r1", repo.Snapshot()[sessions.KeyRefreshToken])
	require.Equal(t, "a2", repo.Snapshot()[sessions.KeyAccessToken])
}

func TestStoreSaveRequiresAccessToken(t *testing.T) {
	repo := fakesessionrepo.NewFakeSessionRepo()
	err := sessions.NewStore(repo).Save(context.Background(), sessions.Session{RefreshToken: "r"})
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.Empty(t, repo.Snapshot())
}

func TestStoreLoadMalformedExpiryIsInvalid(t *testing.T) {
	ctx := context.Background()
	repo := fakesessionrepo.NewFakeSessionRepo()
	require.NoError(t, repo.Set(ctx, sessions.KeyAccessToken, "a"))
	require.NoError(t, repo.Set(ctx, sessions.KeyTokenExpiresAt, "tomorrow"))

	loaded, err := sessions.NewStore(repo).Load(ctx)
	require.NoError(t, err)
	require.Zero(t, loaded.ExpiresAt)
	require.False(t, loaded.IsValid(time.Now(), sessions.DefaultRefreshBuffer))
}

func TestStoreTokenSource(t *testing.T) {
	repo := fakesessionrepo.NewFakeSessionRepo()
	store := sessions.NewStore(repo)

	_, err := store.Token()
	require.ErrorIs(t, err, apperrors.ErrNoSession)

	require.NoError(t, store.Save(context.Background(), sessions.Session{AccessToken: "a", ExpiresAt: 5}))
	tok, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "a", tok.AccessToken)
}

func TestFakeLockerSerializes(t *testing.T) {
	ctx := context.Background()
	repo := fakesessionrepo.NewFakeSessionRepo()

	unlock, err := repo.Lock(ctx, "refresh", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = repo.Lock(waitCtx, "refresh", time.Minute)
	require.ErrorIs(t, err, apperrors.ErrLockTimeout)

	unlock()
	unlock2, err := repo.Lock(ctx, "refresh", time.Minute)
	require.NoError(t, err)
	unlock2()
}

// failingRepo fails Set for one key.
type failingRepo struct {
	*fakesessionrepo.FakeSessionRepo
	failKey string
}

func (r *failingRepo) Set(ctx context.Context, key, value string) error {
	if key == r.failKey {
		return errors.New("disk full")
	}
	return r.FakeSessionRepo.Set(ctx, key, value)
}

func TestStoreSaveRestoresPreviousValuesOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{FakeSessionRepo: fakesessionrepo.NewFakeSessionRepo()}
	store := sessions.NewStore(repo)
	require.NoError(t, store.Save(ctx, sessions.Session{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: 1}))
	before := repo.Snapshot()

	repo.failKey = sessions.KeyAccessToken
	err := store.Save(ctx, sessions.Session{AccessToken: "a2", RefreshToken: "r2", ExpiresAt: 2})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, before, repo.Snapshot())
}

func TestStoreSaveFailureOnEmptyStoreLeavesItEmpty(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{FakeSessionRepo: fakesessionrepo.NewFakeSessionRepo(), failKey: sessions.KeyAccessToken}

	err := sessions.NewStore(repo).Save(ctx, sessions.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: 5})
	require.Error(t, err)
	require.Empty(t, repo.Snapshot())
}
