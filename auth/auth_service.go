package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/manishahirrao/postpilot/identity"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/manishahirrao/postpilot/token/jwt"
	"github.com/manishahirrao/postpilot/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// IdentityProvider is the subset of the identity API the service drives.
type IdentityProvider interface {
	Login(ctx context.Context, credentials identity.Credentials) (*identity.AuthResponse, error)
	Me(ctx context.Context, token *oauth2.Token) (*users.User, error)
	Logout(ctx context.Context, token *oauth2.Token) error
}

// Refresher performs one token refresh and reports whether it succeeded.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// TokenVerifier checks an access token's signature locally.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*jwt.Claims, error)
}

// State is the authenticated client context UI code reads.
type State struct {
	Initialized   bool
	Authenticated bool
	User          *users.User
}

// Service owns the session state. Every change goes through Bootstrap, Login,
// Establish, Refresh, Logout or HandleUnauthorized.
type Service struct {
	store     *sessions.Store
	idp       IdentityProvider
	refresher Refresher
	verifier  TokenVerifier
	buffer    time.Duration
	nowTime   func() time.Time // nowTime function (injectable for testing)
	logger    zerolog.Logger

	mu    sync.RWMutex
	state State
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithBuffer overrides the expiry buffer window.
func WithBuffer(buffer time.Duration) ServiceOption {
	return func(s *Service) {
		s.buffer = buffer
	}
}

// WithVerifier enables local signature checks of stored access tokens.
func WithVerifier(verifier TokenVerifier) ServiceOption {
	return func(s *Service) {
		s.verifier = verifier
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(store *sessions.Store, idp IdentityProvider, refresher Refresher, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if idp == nil {
		return nil, errors.New("[NewService] identity provider is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewService] refresher is required")
	}

	s := &Service{
		store:     store,
		idp:       idp,
		refresher: refresher,
		buffer:    sessions.DefaultRefreshBuffer,
		nowTime:   time.Now,
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// DashboardPath is where the current user should land.
func (s *Service) DashboardPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return users.DashboardPath(s.state.User)
}

// Bootstrap decides the initial session state from persisted tokens. It runs
// its checks once; later calls return the decided state.
func (s *Service) Bootstrap(ctx context.Context) State {
	s.mu.RLock()
	if s.state.Initialized {
		defer s.mu.RUnlock()
		return s.snapshot()
	}
	s.mu.RUnlock()

	session, err := s.store.Load(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNoSession) {
			s.logger.Error().Err(err).Msg("loading stored session failed")
		}
		return s.settle(nil)
	}

	if s.usable(ctx, session) {
		user, err := s.idp.Me(ctx, session.OAuth2Token())
		if err == nil {
			return s.settle(user)
		}
		if apperrors.Classify(err) != apperrors.KindUnauthenticated {
			s.logger.Warn().Err(err).Msg("fetching profile failed")
			return s.profileUnavailable(ctx, err)
		}
		s.logger.Debug().Msg("stored access token rejected, refreshing")
	}

	if !s.refresher.Refresh(ctx) {
		s.clear(ctx)
		return s.settle(nil)
	}

	session, err = s.store.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("loading refreshed session failed")
		s.clear(ctx)
		return s.settle(nil)
	}
	user, err := s.idp.Me(ctx, session.OAuth2Token())
	if err != nil {
		s.logger.Warn().Err(err).Msg("fetching profile after refresh failed")
		return s.profileUnavailable(ctx, err)
	}
	return s.settle(user)
}

// Login signs in and persists the returned session. Nothing is written unless
// the response carries both a user and an access token.
func (s *Service) Login(ctx context.Context, email, password, accountType string) (*users.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, EmailRequiredErr
	}
	if password == "" {
		return nil, PasswordRequiredErr
	}
	at, err := users.ParseAccountType(accountType)
	if err != nil {
		return nil, err
	}

	resp, err := s.idp.Login(ctx, identity.Credentials{Email: email, Password: password, AccountType: at})
	if err != nil {
		return nil, err
	}
	return s.Establish(ctx, resp.Session, resp.User)
}

// Establish stores a session handed out by the identity provider and marks
// the user authenticated.
func (s *Service) Establish(ctx context.Context, payload *identity.SessionPayload, user *users.User) (*users.User, error) {
	session, err := payload.ToSession(s.nowTime())
	if err != nil {
		return nil, fmt.Errorf("[Service Establish] %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("[Service Establish] %w", UserMissingErr)
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("[Service Establish] %w", err)
	}

	user.ApplyProfileDefaults()
	s.settle(user)
	s.logger.Info().Str("user_id", user.ID).Time("expires_at", session.Expiry()).Msg("signed in")
	return cloneUser(user), nil
}

// Refresh runs one token refresh. A failed refresh logs the user out.
func (s *Service) Refresh(ctx context.Context) bool {
	if s.refresher.Refresh(ctx) {
		return true
	}
	s.clear(ctx)
	s.settle(nil)
	return false
}

// Logout revokes the session server side on a best-effort basis, then always
// clears local state.
func (s *Service) Logout(ctx context.Context) error {
	if session, err := s.store.Load(ctx); err == nil {
		if err := s.idp.Logout(ctx, session.OAuth2Token()); err != nil {
			s.logger.Warn().Err(err).Msg("server logout failed")
		}
	}

	err := s.store.Clear(ctx)
	s.settle(nil)
	if err != nil {
		return fmt.Errorf("[Service Logout] %w", err)
	}
	s.logger.Info().Msg("signed out")
	return nil
}

// HandleUnauthorized is registered with the API client; a 401 on a request
// made with the stored session ends that session.
func (s *Service) HandleUnauthorized(ctx context.Context) {
	s.logger.Info().Msg("session rejected by server, signing out")
	s.clear(ctx)
	s.settle(nil)
}

// usable applies the buffer invariant and, when configured, the signature check.
func (s *Service) usable(ctx context.Context, session sessions.Session) bool {
	if !session.IsValid(s.nowTime(), s.buffer) {
		return false
	}
	if s.verifier == nil {
		return true
	}
	if _, err := s.verifier.Verify(ctx, session.AccessToken); err != nil {
		s.logger.Warn().Err(err).Msg("stored access token failed verification")
		return false
	}
	return true
}

// profileUnavailable settles unauthenticated. Transport and server failures
// keep the stored tokens so the next start can retry.
func (s *Service) profileUnavailable(ctx context.Context, err error) State {
	if apperrors.Classify(err) != apperrors.KindTransport {
		s.clear(ctx)
	}
	return s.settle(nil)
}

func (s *Service) clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("clearing stored session failed")
	}
}

// settle moves to a terminal state. Initialized only ever goes false to true.
func (s *Service) settle(user *users.User) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Initialized {
		s.logger.Debug().Bool("authenticated", user != nil).Msg("session initialized")
	}
	s.state = State{
		Initialized:   true,
		Authenticated: user != nil,
		User:          cloneUser(user),
	}
	return s.snapshot()
}

func (s *Service) snapshot() State {
	state := s.state
	state.User = cloneUser(s.state.User)
	return state
}

func cloneUser(user *users.User) *users.User {
	if user == nil {
		return nil
	}
	clone := *user
	return &clone
}
