package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "aiod-mce-app (contact: unknown@example.com)"
	maxAddressPart   = 256
	maxPostalCode    = 64
	requestTimeout   = 10 * time.Second
)

// Address is the partial postal address a lookup accepts.
type Address struct {
	Street     string `json:"street,omitempty"`
	Locality   string `json:"locality,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Coordinates are WGS84 degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Query builds the free-text search string: postal code, locality, street.
func (a Address) Query() string {
	var parts []string
	for _, p := range []string{a.PostalCode, a.Locality, a.Street} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a Address) validate() error {
	if len(a.Street) > maxAddressPart || len(a.Locality) > maxAddressPart {
		return fmt.Errorf("%w: address part longer than %d characters", apperrors.ErrBadRequest, maxAddressPart)
	}
	if len(a.PostalCode) > maxPostalCode {
		return fmt.Errorf("%w: postal code longer than %d characters", apperrors.ErrBadRequest, maxPostalCode)
	}
	return nil
}

// Client looks addresses up against a Nominatim search endpoint. One attempt,
// no caching.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func New(endpoint, userAgent string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := &Client{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup returns the first match for addr. An empty address or no match is ErrBadRequest.
func (c *Client) Lookup(ctx context.Context, addr Address) (Coordinates, error) {
	if err := addr.validate(); err != nil {
		return Coordinates{}, err
	}
	q := addr.Query()
	if q == "" {
		return Coordinates{}, fmt.Errorf("%w: Address is empty", apperrors.ErrBadRequest)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: geocoding url: %w", apperrors.ErrNotConfigured, err)
	}
	params := u.Query()
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "0")
	params.Set("q", q)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("create geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("geocoding request failed")
		return Coordinates{}, fmt.Errorf("%w: Geocoding request failed", apperrors.ErrInternal)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("geocoding request failed")
		return Coordinates{}, fmt.Errorf("%w: Geocoding request failed", apperrors.ErrInternal)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Coordinates{}, fmt.Errorf("%w: Invalid geocoding response: %w", apperrors.ErrInternal, err)
	}
	if len(places) == 0 {
		return Coordinates{}, fmt.Errorf("%w: No results found for the provided address", apperrors.ErrBadRequest)
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil || math.IsInf(lat, 0) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsNaN(lon) {
		return Coordinates{}, fmt.Errorf("%w: Invalid geocoding response", apperrors.ErrInternal)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}
