package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	"github.com/jrsteele09/go-catalogue-editor/geocoding"
	"github.com/jrsteele09/go-catalogue-editor/images"
	"github.com/jrsteele09/go-catalogue-editor/internal/config"
	"github.com/jrsteele09/go-catalogue-editor/server"
	"github.com/jrsteele09/go-catalogue-editor/server/authflowrepo"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/jrsteele09/go-catalogue-editor/taxonomy"
	"github.com/jrsteele09/go-catalogue-editor/token"
	"github.com/jrsteele09/go-catalogue-editor/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.Config
	basePath string
}

func (c testConfig) GetBasePath() string { return c.basePath }
func (testConfig) GetBaseURL() string    { return "http://editor.test" }
func (testConfig) GetEnv() string        { return "TEST" }
func (testConfig) GetAppName() string    { return "Catalogue Editor" }

// fakeOIDC remembers the nonce it was asked to embed and hands it back on exchange.
type fakeOIDC struct {
	mu        sync.Mutex
	nonce     string
	challenge string
	expiresIn int
}

func (f *fakeOIDC) AuthCodeURL(_ context.Context, state, nonce, challenge string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce = nonce
	f.challenge = challenge
	return "https://idp.test/auth?state=" + url.QueryEscape(state), nil
}

func (f *fakeOIDC) Exchange(_ context.Context, code, _ string) (server.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code != "good-code" {
		return server.LoginResult{}, errors.New("invalid_grant")
	}
	return server.LoginResult{
		Identity: token.Identity{Subject: "user-1", Email: "ada@example.org", Name: "Ada"},
		Grant: token.Grant{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    f.expiresIn,
		},
		Nonce: f.nonce,
	}, nil
}

type failingRenewer struct{}

func (failingRenewer) Renew(context.Context, string) (refresh.TokenResponse, error) {
	return refresh.TokenResponse{}, &refresh.RenewalError{StatusCode: http.StatusBadRequest, Status: "400 Bad Request"}
}

type backendCall struct {
	Method string
	Path   string
	Auth   string
}

type fakeCatalogue struct {
	mu    sync.Mutex
	calls []backendCall
}

func (f *fakeCatalogue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")})
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/user/resources":
		_, _ = io.WriteString(w, `{"events":[{"identifier":7,"name":"Summer School","aiod_entry":{"status":"draft"}}]}`)
	case r.URL.Path == "/events/v1/" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `[{"identifier":7,"name":"Summer School"}]`)
	case r.URL.Path == "/events/v1" && r.Method == http.MethodPost:
		_, _ = io.WriteString(w, `{"identifier":8}`)
	case r.URL.Path == "/projects/v1/" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `[{"identifier":3,"name":"Horizon"}]`)
	case r.URL.Path == "/v2/research_areas":
		_, _ = io.WriteString(w, `[{"term":"AI","definition":"","subterms":[{"term":"Machine Learning","definition":"","subterms":[]}]}]`)
	case r.URL.Path == "/v2/licenses":
		_, _ = io.WriteString(w, `[{"term":"MIT","definition":"","subterms":[]}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeCatalogue) callsTo(path string) []backendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []backendCall
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

type harness struct {
	srv     *httptest.Server
	client  *http.Client
	oidc    *fakeOIDC
	backend *fakeCatalogue
	base    string
}

func newHarness(t *testing.T, basePath string, renewer refresh.Renewer) *harness {
	t.Helper()

	backend := &fakeCatalogue{}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	client, err := catalogue.New(backendSrv.URL, catalogue.WithRetryBackoff(time.Millisecond))
	require.NoError(t, err)
	signer, err := token.NewCookieSigner("a-long-enough-test-secret", "catalogue-editor", time.Hour)
	require.NoError(t, err)

	oidc := &fakeOIDC{expiresIn: 300}
	s, err := server.New(testConfig{Config: config.New(), basePath: basePath}, server.Deps{
		Tokens:     token.NewManager(sessions.NewInMemoryRepo(time.Hour), renewer),
		Cookies:    signer,
		AuthFlows:  authflowrepo.NewInMemoryRepo(time.Minute),
		Assets:     assets.NewService(client),
		Taxonomies: taxonomy.NewService(client, time.Minute),
		Geocoder:   geocoding.New(backendSrv.URL+"/search", "test-agent"),
		Images:     images.NewProxy(client, images.DefaultMaxSize),
		OIDC:       oidc,
		Metrics:    prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{srv: srv, client: httpClient, oidc: oidc, backend: backend, base: srv.URL + basePath}
}

func (h *harness) do(t *testing.T, method, path string, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.base+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// login drives the browser side of the authorization code flow.
func (h *harness) login(t *testing.T, returnTo string) *http.Response {
	t.Helper()
	path := "/login"
	if returnTo != "" {
		path += "?return_to=" + url.QueryEscape(returnTo)
	}
	resp := h.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "idp.test", loc.Host)

	state := loc.Query().Get("state")
	return h.do(t, http.MethodGet, "/callback?code=good-code&state="+url.QueryEscape(state), "")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoginEstablishesSession(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.login(t, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/my-assets", resp.Header.Get("Location"))
	require.NotEmpty(t, h.oidc.challenge)

	resp = h.do(t, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	user := body["user"].(map[string]any)
	require.Equal(t, "user-1", user["id"])
	require.Equal(t, "ada@example.org", user["email"])
	require.NotContains(t, body, "accessToken")
}

func TestLoginHonoursLocalReturnPathOnly(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	resp := h.login(t, "/my-assets/events")
	require.Equal(t, "/my-assets/events", resp.Header.Get("Location"))

	h = newHarness(t, "", failingRenewer{})
	resp = h.login(t, "//evil.example/")
	require.Equal(t, "/my-assets", resp.Header.Get("Location"))
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/callback?code=good-code&state=forged", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/login", "")
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	resp = h.do(t, http.MethodGet, "/callback?code=bad-code&state="+state, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/callback?code=good-code&state="+state, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIRequiresSession(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/api/assets/events", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, assets.Unauthorized, decode[map[string]string](t, resp)["error"])
	require.Empty(t, h.backend.callsTo("/events/v1/"))
}

func TestAPIForwardsBearerToken(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/api/assets/events", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[assets.ListResult](t, resp)
	require.Len(t, res.Assets, 1)
	require.Equal(t, "Summer School", res.Assets[0].Name)

	calls := h.backend.callsTo("/events/v1/")
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer access-1", calls[0].Auth)
}

func TestAPIUnknownTypeIsBadRequest(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/api/assets/spaceships", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateAssetReturnsCreated(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodPost, "/api/assets/events", `{"name":"Winter School","mode":"offline"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/assets/events", `{"name":"x"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, decode[map[string]string](t, resp)["error"])
}

func TestFailedRenewalForcesLogout(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.oidc.expiresIn = 1
	h.login(t, "")

	now := time.Now()
	token.NowTimeFunc = func() time.Time { return now.Add(10 * time.Minute) }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	resp := h.do(t, http.MethodGet, "/api/assets/events", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, assets.Unauthorized, decode[map[string]string](t, resp)["error"])

	resp = h.do(t, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, string(sessions.RefreshAccessTokenError), decode[map[string]string](t, resp)["error"])

	resp = h.do(t, http.MethodGet, "/my-assets", "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/auth/logout", resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, "/auth/logout", "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = h.do(t, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, assets.Unauthorized, decode[map[string]string](t, resp)["error"])
}

func TestMyAssetsPageRedirectsToLogin(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/my-assets/events", "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?return_to=%2Fmy-assets%2Fevents", resp.Header.Get("Location"))
}

func TestMyAssetsPageRendersGroups(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/my-assets", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "Summer School")
	require.Contains(t, string(b), "status-draft")
}

func TestBasePathPrefixesRoutesAndRedirects(t *testing.T) {
	h := newHarness(t, "/editor", failingRenewer{})

	resp := h.login(t, "")
	require.Equal(t, "/editor/my-assets", resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := h.client.Get(h.srv.URL + "/api/auth/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaxonomyIsFetchedAnonymously(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/api/taxonomies/research_areas", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	calls := h.backend.callsTo("/v2/research_areas")
	require.Len(t, calls, 1)
	require.Empty(t, calls[0].Auth)

	resp = h.do(t, http.MethodGet, "/api/taxonomies/nope", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[map[string]string](t, resp)["status"])

	resp = h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreflightIsNoContent(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	resp := h.do(t, http.MethodOptions, "/api/assets/events", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestIndexShowsSignIn(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})

	resp := h.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "Sign in")

	h.login(t, "")
	resp = h.do(t, http.MethodGet, "/", "")
	b, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "Sign out")
}

func TestProjectsForSelector(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[assets.ListResult](t, resp)
	require.Len(t, res.Assets, 1)
	require.Equal(t, "Horizon", res.Assets[0].Name)

	calls := h.backend.callsTo("/projects/v1/")
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer access-1", calls[0].Auth)
}

func TestTaxonomyBatchAndTermLookup(t *testing.T) {
	h := newHarness(t, "", failingRenewer{})
	h.login(t, "")

	resp := h.do(t, http.MethodGet, "/api/taxonomies?type=research_areas&type=licenses", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set := decode[map[string][]taxonomy.Taxonomy](t, resp)
	require.Len(t, set, 2)
	require.Equal(t, "MIT", set["licenses"][0].Term)

	resp = h.do(t, http.MethodGet, "/api/taxonomies?type=licenses&type=bogus", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/taxonomies/research_areas?term=machine+learning", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decode[taxonomy.Entry](t, resp)
	require.Equal(t, "Machine Learning", entry.Term)
	require.Equal(t, []string{"AI"}, entry.Path)

	resp = h.do(t, http.MethodGet, "/api/taxonomies/research_areas?term=quantum", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
