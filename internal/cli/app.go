package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/manishahirrao/postpilot/apiclient"
	"github.com/manishahirrao/postpilot/auth"
	"github.com/manishahirrao/postpilot/csrf"
	"github.com/manishahirrao/postpilot/identity"
	"github.com/manishahirrao/postpilot/internal/config"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/sessions"
	"github.com/manishahirrao/postpilot/sessions/boltrepo"
	"github.com/manishahirrao/postpilot/sessions/filerepo"
	"github.com/manishahirrao/postpilot/sessions/redisrepo"
	fakesessionrepo "github.com/manishahirrao/postpilot/sessions/repofakes"
	"github.com/manishahirrao/postpilot/token/jwt"
	"github.com/manishahirrao/postpilot/token/refresh"
)

const lockTTLMargin = 5 * time.Second

// Settings are the values command line flags may override.
type Settings struct {
	APIURL  string
	Storage string
}

// App is the wired client: storage, request authenticator and auth service.
type App struct {
	Config   config.Config
	Store    *sessions.Store
	API      *apiclient.Client
	Identity *identity.Client
	Auth     *auth.Service

	closers []func() error
}

// NewApp wires every component from cfg, with settings taking precedence.
func NewApp(ctx context.Context, cfg config.Config, settings Settings) (*App, error) {
	if settings.APIURL == "" {
		settings.APIURL = cfg.GetAPIBaseURL()
	}
	if settings.Storage == "" {
		settings.Storage = cfg.GetStorageDriver()
	}

	app := &App{Config: cfg}
	repo, locker, err := app.openStorage(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}
	app.Store = sessions.NewStore(repo)

	httpClient := apiclient.NewHTTPClient(cfg.GetHTTPTimeout())
	csrfProvider, err := csrf.NewProvider(settings.APIURL, httpClient,
		csrf.WithCookieName(cfg.GetCSRFCookieName()),
		csrf.WithRetries(cfg.GetCSRFMaxRetries(), cfg.GetCSRFRetryDelay()),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.API = apiclient.New(settings.APIURL,
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithCSRF(csrfProvider),
		apiclient.WithTokenSource(app.Store),
		apiclient.WithUserAgent(cfg.GetAppName()+"-cli"),
	)
	app.Identity = identity.NewClient(app.API)

	refreshOptions := []refresh.ManagerOption{refresh.WithBuffer(cfg.GetRefreshBuffer())}
	if locker != nil {
		refreshOptions = append(refreshOptions, refresh.WithLocker(locker, LockTTL(cfg.GetRefreshLockTTL(), cfg.GetHTTPTimeout())))
	}
	refresher := refresh.NewManager(app.Store, app.Identity, refreshOptions...)

	authOptions := []auth.ServiceOption{auth.WithBuffer(cfg.GetRefreshBuffer())}
	if jwksURL := cfg.GetJWKSURL(); jwksURL != "" {
		authOptions = append(authOptions, auth.WithVerifier(jwt.NewVerifier(ctx, jwksURL, cfg.GetTokenIssuer())))
	}
	app.Auth, err = auth.NewService(app.Store, app.Identity, refresher, authOptions...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.API.OnUnauthorized(app.Auth.HandleUnauthorized)
	return app, nil
}

// Close releases storage handles.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStorage(ctx context.Context, driver string) (sessions.Repo, sessions.Locker, error) {
	switch driver {
	case config.StorageMemory:
		repo := fakesessionrepo.NewFakeSessionRepo()
		return repo, repo, nil
	case config.StorageFile:
		repo, err := filerepo.New(a.Config.GetStoragePath())
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case config.StorageBolt:
		repo, err := boltrepo.Open(a.Config.GetStoragePath())
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return repo, nil, nil
	case config.StorageRedis:
		client, err := redisrepo.NewClient(ctx, a.Config.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Close)
		repo := redisrepo.NewRedisRepo(client, "")
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("[NewApp] %w: unknown storage driver %q", apperrors.ErrUnsupported, driver)
	}
}

// LockTTL keeps the refresh lock alive at least as long as a refresh request
// can take, so a slow holder does not lose the lock mid-request.
func LockTTL(configured, httpTimeout time.Duration) time.Duration {
	return max(configured, httpTimeout+lockTTLMargin)
}
