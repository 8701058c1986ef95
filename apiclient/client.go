package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Header names attached to outgoing requests.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderCSRF      = "X-CSRF-Token"
	HeaderXSRF      = "X-XSRF-TOKEN"
	csrfBodyField   = "_csrf"
)

const maxResponseBytes = 10 << 20

// CSRFSource provides anti-forgery tokens for mutating requests.
type CSRFSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// UnauthorizedHandler is called when a request authenticated from the stored
// session is rejected with 401.
type UnauthorizedHandler func(ctx context.Context)

// Client is the request authenticator every backend call goes through.
type Client struct {
	baseURL    string
	httpClient *http.Client
	csrf       CSRFSource
	tokens     oauth2.TokenSource
	userAgent  string
	logger     zerolog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithCSRF(source CSRFSource) Option {
	return func(c *Client) {
		c.csrf = source
	}
}

// WithTokenSource sets where bearer tokens come from when a request does not
// carry one explicitly.
func WithTokenSource(tokens oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewHTTPClient returns an http.Client with a cookie jar, so server cookies
// (including the anti-forgery cookie) are sent back like a browser would.
func NewHTTPClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: timeout, Jar: jar}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(30 * time.Second),
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnUnauthorized registers the handler for 401 responses.
func (c *Client) OnUnauthorized(handler UnauthorizedHandler) {
	c.mu.Lock()
	c.onUnauthorized = handler
	c.mu.Unlock()
}

// Do sends req. Mutating requests carry an anti-forgery token; a 403 on a
// mutating request refreshes that token and retries exactly once. Non-2xx
// responses are returned together with an *errors.HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	requestID := uuid.NewString()
	logger := c.logger.With().Str("request_id", requestID).Str("method", req.method()).Str("path", req.Path).Logger()

	mutating := req.mutating() && c.csrf != nil
	var csrfToken string
	if mutating {
		token, err := c.csrf.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("[apiclient Do] %s %s: %w", req.method(), req.Path, err)
		}
		csrfToken = token
	}

	fromStore, err := c.bearer(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, requestID, csrfToken, fromStore.token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusForbidden && mutating {
		logger.Debug().Msg("request forbidden, refreshing csrf token and retrying once")
		token, err := c.csrf.Refresh(ctx)
		if err != nil {
			return resp, fmt.Errorf("[apiclient Do] %s %s: %w", req.method(), req.Path, err)
		}
		resp, err = c.send(ctx, req, requestID, token, fromStore.token)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}

	httpErr := newHTTPError(resp)
	logger.Debug().Int("status", resp.StatusCode).Msg("request failed")
	if resp.StatusCode == http.StatusUnauthorized && fromStore.stored {
		c.mu.RLock()
		handler := c.onUnauthorized
		c.mu.RUnlock()
		if handler != nil {
			handler(ctx)
		}
	}
	return resp, fmt.Errorf("[apiclient Do] %s %s: %w", req.method(), req.Path, httpErr)
}

type bearerToken struct {
	token  *oauth2.Token
	stored bool
}

func (c *Client) bearer(req *Request) (bearerToken, error) {
	if req.Anonymous {
		return bearerToken{}, nil
	}
	if req.Token != nil {
		return bearerToken{token: req.Token}, nil
	}
	if c.tokens == nil {
		return bearerToken{}, nil
	}

	token, err := c.tokens.Token()
	if apperrors.Is(err, apperrors.ErrNoSession) {
		return bearerToken{}, nil
	}
	if err != nil {
		return bearerToken{}, fmt.Errorf("[apiclient Do] token source: %w", err)
	}
	return bearerToken{token: token, stored: true}, nil
}

func (c *Client) send(ctx context.Context, req *Request, requestID, csrfToken string, token *oauth2.Token) (*Response, error) {
	body, contentType, err := req.encodeBody(csrfToken)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), c.url(req), reader)
	if err != nil {
		return nil, fmt.Errorf("[apiclient Do] build request: %w", err)
	}

	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if csrfToken != "" {
		httpReq.Header.Set(HeaderCSRF, csrfToken)
		httpReq.Header.Set(HeaderXSRF, csrfToken)
	}
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(httpReq)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[apiclient Do] %s %s: %w: %w", req.method(), req.Path, apperrors.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("[apiclient Do] read body: %w: %w", apperrors.ErrTransport, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) url(req *Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func newHTTPError(resp *Response) *apperrors.HTTPError {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if json.Unmarshal(resp.Body, &body) == nil {
		message = body.Message
		if message == "" {
			message = body.Error
		}
	}
	return &apperrors.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Body:       resp.Body,
	}
}
