package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// PAGES
	s.RegisterRouteHandler("GET "+s.path(RouteIndex), ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+s.path(RouteMyAssets), ChainMiddleware(s.MyAssetsPageHandler(), s.HTMLMiddleWare(s.RequirePageSession())...))
	s.RegisterRouteHandler("GET "+s.path(RouteMyAssetsType), ChainMiddleware(s.MyAssetsTypePageHandler(), s.HTMLMiddleWare(s.RequirePageSession())...))

	// LOGIN
	s.RegisterRouteHandler("GET "+s.path(RouteLogin), ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+s.path(RouteCallback), ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+s.path(RouteAuthLogout), ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+s.path(RouteAPISession), ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))

	// API routes, session required
	api := func(pattern string, h http.HandlerFunc) {
		method, route, _ := strings.Cut(pattern, " ")
		s.RegisterRouteFunc(method+" "+s.path(route), ChainMiddleware(h, s.APIMiddleware(s.RequireSession())...))
	}
	api("GET "+RouteAPIAuthTest, s.AuthTestHandler())
	api("GET "+RouteAPIResources, s.MyAssetsHandler())
	api("GET "+RouteAPIProjects, s.ProjectsHandler())
	api("GET "+RouteAPIAssets, s.ListAssetsHandler())
	api("POST "+RouteAPIAssets, s.CreateAssetHandler())
	api("GET "+RouteAPIAsset, s.GetAssetHandler())
	api("PUT "+RouteAPIAsset, s.UpdateAssetHandler())
	api("DELETE "+RouteAPIAsset, s.DeleteAssetHandler())
	api("POST "+RouteAPIAssetImage, s.ImageUploadHandler())
	api("PUT "+RouteAPIAssetImage, s.ImageUploadHandler())
	api("DELETE "+RouteAPIAssetImage, s.ImageDeleteHandler())
	api("GET "+RouteAPIContact, s.GetContactHandler())
	api("POST "+RouteAPIContacts, s.SaveContactHandler())
	api("PUT "+RouteAPIContact, s.SaveContactHandler())
	api("POST "+RouteAPISubmissions, s.SubmitForReviewHandler())
	api("GET "+RouteAPITaxonomies, s.TaxonomiesHandler())
	api("GET "+RouteAPITaxonomy, s.TaxonomyHandler())
	api("GET "+RouteAPIEnums, s.EnumsHandler())
	api("GET "+RouteAPIGeocoding, s.GeocodingHandler())

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS "+s.path("/api/"), ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))

	// Operations
	s.RegisterRouteHandler("GET "+s.path(RouteAPIHealth), ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+s.path(RouteMetrics), promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.RegisterRouteHandler("GET "+s.path(RouteStatic), ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := r.PathValue("file")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := StreamFile(w, r, filePath); err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, errMsg string) {
	log.Error().Str("method", method).Str("path", path).Msg(Red + errMsg + ResetColor)
}
