package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/geocoding"
	"github.com/jrsteele09/go-catalogue-editor/images"
	"github.com/jrsteele09/go-catalogue-editor/internal/config"
	"github.com/jrsteele09/go-catalogue-editor/server/authflowrepo"
	"github.com/jrsteele09/go-catalogue-editor/taxonomy"
	"github.com/jrsteele09/go-catalogue-editor/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Tokens     *token.Manager
	Cookies    *token.CookieSigner
	AuthFlows  authflowrepo.Repo
	Assets     *assets.Service
	Taxonomies *taxonomy.Service
	Geocoder   *geocoding.Client
	Images     *images.Proxy
	// OIDC defaults to discovery against the configured issuer.
	OIDC    OIDCProvider
	Metrics prometheus.Gatherer
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	basePath string
	mux      *http.ServeMux
	routes   []string
	config   config.Config

	tokens     *token.Manager
	cookies    *token.CookieSigner
	authFlows  authflowrepo.Repo
	assets     *assets.Service
	taxonomies *taxonomy.Service
	geocoder   *geocoding.Client
	images     *images.Proxy
	oidc       OIDCProvider
	gatherer   prometheus.Gatherer
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Tokens == nil || deps.Cookies == nil || deps.AuthFlows == nil {
		return nil, fmt.Errorf("[Server New] token manager, cookie signer and auth flow repo are required")
	}
	if deps.Assets == nil || deps.Taxonomies == nil || deps.Images == nil {
		return nil, fmt.Errorf("[Server New] catalogue services are required")
	}

	s := &Server{
		env:        cfg.GetEnv(),
		basePath:   cfg.GetBasePath(),
		mux:        http.NewServeMux(),
		config:     cfg,
		tokens:     deps.Tokens,
		cookies:    deps.Cookies,
		authFlows:  deps.AuthFlows,
		assets:     deps.Assets,
		taxonomies: deps.Taxonomies,
		geocoder:   deps.Geocoder,
		images:     deps.Images,
		oidc:       deps.OIDC,
		gatherer:   deps.Metrics,
	}
	if s.oidc == nil {
		s.oidc = newDiscoveryProvider(cfg, s.redirectURL())
	}
	if s.geocoder == nil {
		s.geocoder = geocoding.New(cfg.GetNominatimURL(), cfg.GetNominatimUserAgent())
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// path prefixes an application route with the configured base path.
func (s *Server) path(route string) string {
	return s.basePath + route
}

func (s *Server) redirectURL() string {
	return s.config.GetBaseURL() + s.path(RouteCallback)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		logRoute(method, path)
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
