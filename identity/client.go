package identity

import (
	"context"
	"fmt"
	"net/http"

	"github.com/manishahirrao/postpilot/apiclient"
	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/users"
	"golang.org/x/oauth2"
)

// Identity provider endpoints, relative to the API base URL.
const (
	LoginPath    = "/auth/login"
	RefreshPath  = "/auth/refresh"
	MePath       = "/auth/me"
	LogoutPath   = "/auth/logout"
	RegisterPath = "/auth/register"
)

// Client calls the identity provider through the request authenticator.
type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Login posts credentials. A response with success=false is ErrLoginFailed;
// the session payload is returned as-is for the caller to validate.
func (c *Client) Login(ctx context.Context, credentials Credentials) (*AuthResponse, error) {
	var body AuthResponse
	if err := c.post(ctx, LoginPath, credentials, &body); err != nil {
		if apperrors.Classify(err) == apperrors.KindTransport {
			return nil, fmt.Errorf("[identity Login] %w", err)
		}
		return nil, fmt.Errorf("[identity Login] %w: %w", apperrors.ErrLoginFailed, err)
	}
	if !body.Success {
		return &body, fmt.Errorf("[identity Login] %w: %s", apperrors.ErrLoginFailed, body.Message)
	}
	return &body, nil
}

// Register creates an account. The response only carries a session when the
// provider signs the user in immediately.
func (c *Client) Register(ctx context.Context, registration Registration) (*AuthResponse, error) {
	var body AuthResponse
	if err := c.post(ctx, RegisterPath, registration, &body); err != nil {
		return nil, fmt.Errorf("[identity Register] %w", err)
	}
	if !body.Success {
		return &body, fmt.Errorf("[identity Register] %w: %s", apperrors.ErrInvalidInput, body.Message)
	}
	return &body, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*SessionPayload, error) {
	var body refreshResponse
	if err := c.post(ctx, RefreshPath, refreshRequest{RefreshToken: refreshToken}, &body); err != nil {
		return nil, fmt.Errorf("[identity Refresh] %w: %w", apperrors.ErrRefreshFailed, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("[identity Refresh] %w: %s", apperrors.ErrRefreshFailed, body.Message)
	}
	if body.Session == nil || body.Session.AccessToken == "" {
		return nil, fmt.Errorf("[identity Refresh] %w: response has no session", apperrors.ErrMalformedPayload)
	}
	return body.Session, nil
}

// Me fetches the current user. A nil token uses the stored session.
func (c *Client) Me(ctx context.Context, token *oauth2.Token) (*users.User, error) {
	resp, err := c.api.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: MePath, Token: token})
	if err != nil {
		return nil, fmt.Errorf("[identity Me] %w", err)
	}

	var body meResponse
	if err := resp.Decode(&body); err != nil {
		return nil, fmt.Errorf("[identity Me] %w", err)
	}
	if !body.Success || body.User == nil {
		return nil, fmt.Errorf("[identity Me] %w: response has no user", apperrors.ErrMalformedPayload)
	}
	body.User.ApplyProfileDefaults()
	return body.User, nil
}

// Logout revokes the session server side. A nil token uses the stored session.
func (c *Client) Logout(ctx context.Context, token *oauth2.Token) error {
	_, err := c.api.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: LogoutPath, JSON: struct{}{}, Token: token})
	if err != nil {
		return fmt.Errorf("[identity Logout] %w", err)
	}
	return nil
}

// post sends an anonymous JSON request and decodes a 2xx body into out.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	resp, err := c.api.Do(ctx, &apiclient.Request{Method: http.MethodPost, Path: path, JSON: payload, Anonymous: true})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
