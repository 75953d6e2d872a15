package server

// Route path constants, relative to the configured base path.
const (
	// Auth
	RouteLogin       = "/login"
	RouteCallback    = "/callback"
	RouteAuthLogout  = "/auth/logout"
	RouteAPISession  = "/api/auth/session"
	RouteAPIAuthTest = "/api/auth/test"

	// Assets
	RouteAPIResources  = "/api/resources"
	RouteAPIProjects   = "/api/projects"
	RouteAPIAssets     = "/api/assets/{type}"
	RouteAPIAsset      = "/api/assets/{type}/{id}"
	RouteAPIAssetImage = "/api/assets/{type}/{id}/image"

	// Contacts and review workflow
	RouteAPIContacts    = "/api/contacts"
	RouteAPIContact     = "/api/contacts/{id}"
	RouteAPISubmissions = "/api/submissions"

	// Lookups
	RouteAPITaxonomies = "/api/taxonomies"
	RouteAPITaxonomy   = "/api/taxonomies/{type}"
	RouteAPIEnums      = "/api/enums"
	RouteAPIGeocoding  = "/api/geocoding"

	// Operations
	RouteAPIHealth = "/api/health"
	RouteMetrics   = "/metrics"

	// Pages
	RouteIndex        = "/{$}"
	RouteMyAssets     = "/my-assets"
	RouteMyAssetsType = "/my-assets/{type}"
	RouteStatic       = "/static/{file...}"
)
