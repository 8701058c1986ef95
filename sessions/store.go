package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"golang.org/x/oauth2"
)

// Store is the single owner of the persisted session. Everything else reads
// and writes tokens through it.
type Store struct {
	repo Repo
}

// NewStore wraps repo.
func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// Load reads the persisted session. It returns ErrNoSession when no access
// token is stored. A missing or unparseable expiry loads as ExpiresAt == 0,
// which IsValid treats as expired.
func (s *Store) Load(ctx context.Context) (Session, error) {
	accessToken, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, err
	}
	if accessToken == "" {
		return Session{}, apperrors.ErrNoSession
	}

	refreshToken, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return Session{}, err
	}
	rawExpiry, err := s.get(ctx, KeyTokenExpiresAt)
	if err != nil {
		return Session{}, err
	}

	expiresAt, parseErr := strconv.ParseInt(strings.TrimSpace(rawExpiry), 10, 64)
	if parseErr != nil {
		expiresAt = 0
	}

	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

// Save persists all fields of session. The access token is written last so a
// partially written session never loads with a stale expiry. If any write
// fails the keys already written are restored to their previous values.
func (s *Store) Save(ctx context.Context, session Session) error {
	if session.AccessToken == "" {
		return fmt.Errorf("[Store Save] %w: access token is required", apperrors.ErrInvalidToken)
	}

	writes := make([][2]string, 0, 3)
	if session.RefreshToken != "" {
		writes = append(writes, [2]string{KeyRefreshToken, session.RefreshToken})
	}
	writes = append(writes,
		[2]string{KeyTokenExpiresAt, strconv.FormatInt(session.ExpiresAt, 10)},
		[2]string{KeyAccessToken, session.AccessToken},
	)

	previous := make(map[string]*string, len(writes))
	for _, w := range writes {
		value, err := s.repo.Get(ctx, w[0])
		switch {
		case err == nil:
			previous[w[0]] = &value
		case apperrors.Is(err, apperrors.ErrNotFound):
			previous[w[0]] = nil
		default:
			return fmt.Errorf("[Store Save] read %s: %w", w[0], err)
		}
	}

	for i, w := range writes {
		if err := s.repo.Set(ctx, w[0], w[1]); err != nil {
			if rollbackErr := s.restore(ctx, writes[:i], previous); rollbackErr != nil {
				return fmt.Errorf("[Store Save] %s: %w", w[0], errors.Join(err, rollbackErr))
			}
			return fmt.Errorf("[Store Save] %s: %w", w[0], err)
		}
	}
	return nil
}

func (s *Store) restore(ctx context.Context, written [][2]string, previous map[string]*string) error {
	var errs []error
	for _, w := range written {
		old := previous[w[0]]
		if old == nil {
			errs = append(errs, s.repo.Delete(ctx, w[0]))
			continue
		}
		errs = append(errs, s.repo.Set(ctx, w[0], *old))
	}
	return errors.Join(errs...)
}

// Clear removes every persisted session key.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyTokenExpiresAt); err != nil {
		return fmt.Errorf("[Store Clear] %w", err)
	}
	return nil
}

// RefreshToken returns the stored refresh token, or "" if none is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

// Token implements oauth2.TokenSource over the persisted access token.
func (s *Store) Token() (*oauth2.Token, error) {
	session, err := s.Load(context.Background())
	if err != nil {
		return nil, err
	}
	return session.OAuth2Token(), nil
}

var _ oauth2.TokenSource = (*Store)(nil)

func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, err := s.repo.Get(ctx, key)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[Store] read %s: %w", key, err)
	}
	return value, nil
}
