package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultScopes are requested on login and again on every renewal.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

const defaultTimeout = 10 * time.Second

// TokenResponse is the subset of the token endpoint response the editor keeps.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Renewer exchanges a refresh token for a new token pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (TokenResponse, error)
}

// RenewalError is returned when the identity provider answers with a non-2xx status.
// The body is kept for logging only.
type RenewalError struct {
	StatusCode int
	Status     string
	Body       string
	retrieve   *oauth2.RetrieveError
}

func (e *RenewalError) Error() string {
	msg := fmt.Sprintf("token refresh failed: %s", e.Status)
	if e.Body != "" {
		msg += " - " + e.Body
	}
	return msg
}

func (e *RenewalError) Unwrap() []error {
	return []error{apperrors.ErrRefreshAccessToken, e.retrieve}
}

// Client performs refresh_token grants against a single token endpoint.
// It makes exactly one attempt per call; refresh tokens rotate, so a retry could
// replay a token the provider already consumed.
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       []string
	httpClient   *http.Client
}

var _ Renewer = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithScopes(scopes ...string) Option {
	return func(cl *Client) { cl.scopes = scopes }
}

func NewClient(tokenURL, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       DefaultScopes,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Renew posts a form encoded refresh_token grant and decodes the new token pair.
func (c *Client) Renew(ctx context.Context, refreshToken string) (TokenResponse, error) {
	if c.tokenURL == "" {
		return TokenResponse{}, fmt.Errorf("%w: token endpoint", apperrors.ErrNotConfigured)
	}
	if refreshToken == "" {
		return TokenResponse{}, fmt.Errorf("%w: empty refresh token", apperrors.ErrRefreshAccessToken)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("scope", strings.Join(c.scopes, " "))
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: %w", apperrors.ErrRefreshAccessToken, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: read response: %w", apperrors.ErrRefreshAccessToken, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		renewalErr := &RenewalError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			retrieve:   &oauth2.RetrieveError{Response: resp, Body: body},
		}
		log.Error().Int("status", resp.StatusCode).Msg(renewalErr.Error())
		return TokenResponse{}, renewalErr
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenResponse{}, fmt.Errorf("%w: decode response: %w", apperrors.ErrRefreshAccessToken, err)
	}
	if tr.AccessToken == "" {
		return TokenResponse{}, fmt.Errorf("%w: response has no access_token", apperrors.ErrRefreshAccessToken)
	}
	return tr, nil
}
