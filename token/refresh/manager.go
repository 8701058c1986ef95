package refresh

import (
	"context"
	"time"

	"github.com/manishahirrao/postpilot/identity"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// LockName is the storage lock held while a refresh is in flight.
const LockName = "refresh"

// DefaultLockTTL bounds how long a crashed holder can block other refreshes.
const DefaultLockTTL = 45 * time.Second

// Provider exchanges a refresh token for a new session.
type Provider interface {
	Refresh(ctx context.Context, refreshToken string) (*identity.SessionPayload, error)
}

// Manager performs token refreshes against the identity provider and persists
// the result.
type Manager struct {
	store    *sessions.Store
	provider Provider
	locker   sessions.Locker
	lockTTL  time.Duration
	buffer   time.Duration
	logger   zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLocker serializes refreshes across processes sharing the same storage.
func WithLocker(locker sessions.Locker, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

func WithBuffer(buffer time.Duration) ManagerOption {
	return func(m *Manager) {
		m.buffer = buffer
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new refresh manager
func NewManager(store *sessions.Store, provider Provider, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		provider: provider,
		lockTTL:  DefaultLockTTL,
		buffer:   sessions.DefaultRefreshBuffer,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh reports whether a fresh session is now stored. Without a stored
// refresh token it returns false without any network call. On failure the
// previously stored session is left untouched; callers treat false as
// "must log out".
func (m *Manager) Refresh(ctx context.Context) bool {
	before, _ := m.store.Load(ctx)

	refreshToken, err := m.store.RefreshToken(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("reading refresh token failed")
		return false
	}
	if refreshToken == "" {
		m.logger.Debug().Msg("no refresh token stored")
		return false
	}

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, LockName, m.lockTTL)
		if err != nil {
			m.logger.Warn().Err(err).Msg("acquiring refresh lock failed")
			return false
		}
		defer unlock()

		// another holder may have refreshed while we waited
		current, err := m.store.Load(ctx)
		if err == nil && current.AccessToken != before.AccessToken && current.IsValid(NowTimeFunc(), m.buffer) {
			m.logger.Debug().Msg("session already refreshed by another holder")
			return true
		}
		if refreshToken, err = m.store.RefreshToken(ctx); err != nil || refreshToken == "" {
			return false
		}
	}

	payload, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		m.logger.Warn().Err(err).Msg("token refresh failed")
		return false
	}

	session, err := payload.ToSession(NowTimeFunc())
	if err != nil {
		m.logger.Warn().Err(err).Msg("token refresh returned a malformed session")
		return false
	}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}

	if err := m.store.Save(ctx, session); err != nil {
		m.logger.Error().Err(err).Msg("persisting refreshed session failed")
		return false
	}

	m.logger.Info().Time("expires_at", session.Expiry()).Msg("session refreshed")
	return true
}
