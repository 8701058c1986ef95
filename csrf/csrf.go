package csrf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenPath is the anti-forgery token endpoint, relative to the API base URL.
const TokenPath = "/api/csrf-token"

const (
	DefaultCookieName = "XSRF-TOKEN"
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

type tokenResponse struct {
	Success   bool   `json:"success"`
	CSRFToken string `json:"csrfToken"`
	Message   string `json:"message,omitempty"`
}

// Provider hands out anti-forgery tokens for mutating requests: the server
// cookie if the jar holds one, else the last fetched token, else a fresh one.
type Provider struct {
	baseURL    *url.URL
	httpClient *http.Client
	cookieName string
	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     zerolog.Logger

	mu     sync.Mutex
	cached string
}

// Option configures a Provider.
type Option func(*Provider)

func WithCookieName(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.cookieName = name
		}
	}
}

// WithRetries sets how many times a failed fetch is retried and the linear
// backoff unit (attempt n waits n*delay).
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(p *Provider) {
		if maxRetries >= 0 {
			p.maxRetries = maxRetries
		}
		if delay >= 0 {
			p.retryDelay = delay
		}
	}
}

// WithSleep replaces the backoff sleep (primarily for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Provider) {
		p.sleep = sleep
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a provider for the API at baseURL. httpClient should be
// the same client (and cookie jar) the API requests go through.
func NewProvider(baseURL string, httpClient *http.Client, opts ...Option) (*Provider, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[csrf NewProvider] invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	p := &Provider{
		baseURL:    u,
		httpClient: httpClient,
		cookieName: DefaultCookieName,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		sleep:      sleepContext,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Token returns a usable anti-forgery token, fetching one only when neither
// the cookie nor the cache has one.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if token := p.cookieToken(); token != "" {
		return token, nil
	}

	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	return p.fetch(ctx)
}

// Refresh discards any cached token and fetches a new one from the server.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	p.Invalidate()
	return p.fetch(ctx)
}

// Invalidate drops the cached token.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = ""
	p.mu.Unlock()
}

func (p *Provider) cookieToken() string {
	if p.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range p.httpClient.Jar.Cookies(p.baseURL) {
		if cookie.Name != p.cookieName || cookie.Value == "" {
			continue
		}
		if value, err := url.QueryUnescape(cookie.Value); err == nil {
			return value
		}
		return cookie.Value
	}
	return ""
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, time.Duration(attempt)*p.retryDelay); err != nil {
				return "", fmt.Errorf("[csrf fetch] %w: %w", apperrors.ErrCSRFUnavailable, err)
			}
		}

		token, err := p.fetchOnce(ctx)
		if err == nil {
			p.mu.Lock()
			p.cached = token
			p.mu.Unlock()
			return token, nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("csrf token fetch failed")
	}
	return "", fmt.Errorf("[csrf fetch] %w after %d attempts: %v", apperrors.ErrCSRFUnavailable, p.maxRetries+1, lastErr)
}

func (p *Provider) fetchOnce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL.String()+TokenPath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apperrors.HTTPError{StatusCode: resp.StatusCode}
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrMalformedPayload, err)
	}
	if !body.Success || body.CSRFToken == "" {
		return "", fmt.Errorf("%w: no token in response", apperrors.ErrMalformedPayload)
	}
	return body.CSRFToken, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
