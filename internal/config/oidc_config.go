package config

import (
	"strings"
	"time"
)

type OIDCConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetIssuer() string
	GetTokenEndpoint() string
	GetScopes() []string
	GetTokenExpirySkew() time.Duration
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

func (OIDC) GetClientID() string {
	return GetEnv("AUTH_KEYCLOAK_CLIENT_ID", "")
}

func (OIDC) GetClientSecret() string {
	return GetEnv("AUTH_KEYCLOAK_CLIENT_SECRET", "")
}

func (OIDC) GetIssuer() string {
	return GetEnv("AUTH_KEYCLOAK_ISSUER", "")
}

// GetTokenEndpoint is the Keycloak token endpoint used for refresh_token grants.
func (o OIDC) GetTokenEndpoint() string {
	issuer := o.GetIssuer()
	if issuer == "" {
		return ""
	}
	return strings.TrimRight(issuer, "/") + "/protocol/openid-connect/token"
}

func (OIDC) GetScopes() []string {
	return []string{"openid", "profile", "email", "offline_access"}
}

func (OIDC) GetTokenExpirySkew() time.Duration {
	return 60 * time.Second
}
