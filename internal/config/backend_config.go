package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBackendURL() string
	GetTaxonomyRevalidate() time.Duration
	GetDefaultPageLimit() int
	GetMaxImageSize() int
	GetNominatimURL() string
	GetNominatimUserAgent() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetBackendURL() string {
	return strings.TrimRight(GetEnv("BACKEND_URL", ""), "/")
}

func (Backend) GetTaxonomyRevalidate() time.Duration {
	return 24 * time.Hour
}

func (Backend) GetDefaultPageLimit() int {
	return 1000
}

func (Backend) GetMaxImageSize() int {
	return 1048576 // 1 MB
}

func (Backend) GetNominatimURL() string {
	return GetEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search")
}

func (Backend) GetNominatimUserAgent() string {
	return GetEnv("NOMINATIM_USER_AGENT", "aiod-mce-app (contact: unknown@example.com)")
}
