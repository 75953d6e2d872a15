package catalogue

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/internal/metrics"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	cacheCleanup        = 15 * time.Minute
	maxResponseSize     = 32 << 20
)

// Revalidate hints for Options.Revalidate.
const (
	NoCache            time.Duration = 0
	TaxonomyRevalidate               = 24 * time.Hour
)

// Options shape a single gateway call.
type Options struct {
	Method  string // defaults to GET
	Headers map[string]string
	Body    []byte
	// Revalidate is how long a successful GET may be served from cache. Zero always
	// goes to the backend.
	Revalidate time.Duration
}

// Client is the one typed HTTP client every data access goes through. It resolves
// paths against the backend base URL, attaches the bearer token when given, and
// turns non-2xx responses into *APIError.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	cache        *cache.Cache
	metrics      *metrics.Metrics
	retryBackoff time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// WithRetryBackoff sets the base delay before the single GET retry. Jitter of up to
// the same amount is added.
func WithRetryBackoff(d time.Duration) Option {
	return func(cl *Client) { cl.retryBackoff = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: BACKEND_URL is not set", apperrors.ErrNotConfigured)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[catalogue New] invalid base url: %w", err)
	}

	c := &Client{
		baseURL:      u,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		cache:        cache.New(cache.NoExpiration, cacheCleanup),
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveURL joins pathname onto the base URL. A leading slash does not escape the
// base path, so "/datasets/v1" under "https://api/aiod/" becomes "https://api/aiod/datasets/v1".
func (c *Client) ResolveURL(pathname string) (*url.URL, error) {
	rel, err := url.Parse(strings.TrimPrefix(pathname, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", pathname, err)
	}
	return c.baseURL.ResolveReference(rel), nil
}

// Fetch performs the call and decodes the JSON response into T. An empty body
// decodes to the zero value.
func Fetch[T any](ctx context.Context, c *Client, pathname, accessToken string, opts Options) (T, error) {
	var out T
	body, err := c.Do(ctx, pathname, accessToken, opts)
	if err != nil {
		return out, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %w", apperrors.ErrBackend, pathname, err)
	}
	return out, nil
}

// Do performs the call and returns the raw response body.
func (c *Client) Do(ctx context.Context, pathname, accessToken string, opts Options) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	u, err := c.ResolveURL(pathname)
	if err != nil {
		return nil, err
	}

	cacheable := method == http.MethodGet && opts.Revalidate > 0
	key := cacheKey(u, accessToken)
	if cacheable {
		if cached, ok := c.cache.Get(key); ok {
			c.metrics.IncCacheHit()
			return cached.([]byte), nil
		}
	}

	log.Debug().Msgf("API Request: %s %s", u.String(), method)

	body, err := c.roundTrip(ctx, method, u, accessToken, opts)
	if err != nil && method == http.MethodGet && retryable(err) {
		if waitErr := c.backoff(ctx); waitErr != nil {
			return nil, err
		}
		log.Debug().Err(err).Msgf("API Retry: %s %s", u.String(), method)
		body, err = c.roundTrip(ctx, method, u, accessToken, opts)
	}
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.cache.Set(key, body, opts.Revalidate)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, u *url.URL, accessToken string, opts Options) ([]byte, error) {
	var reqBody io.Reader
	if opts.Body != nil {
		reqBody = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackendRequest(method, 0, time.Since(start))
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveBackendRequest(method, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:     method,
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
		log.Error().Int("status", resp.StatusCode).Str("body", apiErr.Body).Msg(apiErr.Error())
		return nil, apiErr
	}
	log.Debug().Msgf("API Response: %s", resp.Status)
	return body, nil
}

// Revalidate drops every cached response whose path starts with pathname.
func (c *Client) Revalidate(pathname string) {
	u, err := c.ResolveURL(pathname)
	if err != nil {
		return
	}
	prefix := u.Path
	for key := range c.cache.Items() {
		if strings.HasPrefix(cachedPath(key), prefix) {
			c.cache.Delete(key)
		}
	}
}

func (c *Client) backoff(ctx context.Context) error {
	delay := c.retryBackoff
	if delay > 0 {
		delay += rand.N(c.retryBackoff)
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// transportError marks failures where no HTTP response arrived.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "API transport error: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	if apperrors.Is(err, context.Canceled) || apperrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *transportError
	if apperrors.As(err, &te) {
		return true
	}
	return StatusCode(err) >= http.StatusInternalServerError
}

// Cache keys carry a token fingerprint so one user's cached response is never served to another.
func cacheKey(u *url.URL, accessToken string) string {
	fingerprint := "anon"
	if accessToken != "" {
		sum := sha256.Sum256([]byte(accessToken))
		fingerprint = hex.EncodeToString(sum[:8])
	}
	return fingerprint + " " + u.String()
}

func cachedPath(key string) string {
	_, raw, ok := strings.Cut(key, " ")
	if !ok {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
