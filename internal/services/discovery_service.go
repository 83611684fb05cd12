package services

import (
	"strings"

	"github.com/go-oauth2/oauth2/v4"
)

const (
	ScopeRead  = "mcp:read"
	ScopeWrite = "mcp:write"
)

// SupportedScopes lists every scope the gateway understands.
var SupportedScopes = []string{ScopeRead, ScopeWrite}

// Endpoint paths advertised by discovery.
const (
	AuthorizePath         = "/.oauth/authorize"
	TokenPath             = "/.oauth/token"
	RegisterPath          = "/.oauth/register"
	RevokePath            = "/.oauth/revoke"
	MCPPath               = "/.mcp"
	ProtectedResourcePath = "/.well-known/oauth-protected-resource"
	AuthServerPath        = "/.well-known/oauth-authorization-server"
	OpenIDConfigPath      = "/.well-known/openid-configuration"
	DocumentationPath     = "/swagger/index.html"
)

// AuthorizationServerMetadata is the RFC 8414 document.
type AuthorizationServerMetadata struct {
	Issuer                                 string   `json:"issuer"`
	AuthorizationEndpoint                  string   `json:"authorization_endpoint"`
	TokenEndpoint                          string   `json:"token_endpoint"`
	RegistrationEndpoint                   string   `json:"registration_endpoint"`
	RevocationEndpoint                     string   `json:"revocation_endpoint"`
	ScopesSupported                        []string `json:"scopes_supported"`
	ResponseTypesSupported                 []string `json:"response_types_supported"`
	ResponseModesSupported                 []string `json:"response_modes_supported"`
	GrantTypesSupported                    []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported          []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported      []string `json:"token_endpoint_auth_methods_supported"`
	RevocationEndpointAuthMethodsSupported []string `json:"revocation_endpoint_auth_methods_supported"`
	ServiceDocumentation                   string   `json:"service_documentation"`
	UILocalesSupported                     []string `json:"ui_locales_supported"`
	MCPEndpoint                            string   `json:"mcp_endpoint"`
}

// ProtectedResourceMetadata is the RFC 9728 document.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ScopesSupported        []string `json:"scopes_supported"`
	ResourceDocumentation  string   `json:"resource_documentation"`
}

type WellKnownLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type WellKnownIndex struct {
	Links []WellKnownLink `json:"links"`
}

// DiscoveryService builds the discovery documents. It holds no state; every
// URL is derived from the request's host and forwarded protocol.
type DiscoveryService interface {
	BaseURL(host, forwardedProto string) string
	AuthorizationServerMetadata(baseURL string) AuthorizationServerMetadata
	ProtectedResourceMetadata(baseURL string) ProtectedResourceMetadata
	Index(baseURL string) WellKnownIndex
}

type discoveryService struct{}

func NewDiscoveryService() DiscoveryService {
	return &discoveryService{}
}

var plainHTTPHosts = []string{"localhost", "127.0.0.1", ":3000", ":8000", ":8001"}

func (s *discoveryService) BaseURL(host, forwardedProto string) string {
	return Protocol(host, forwardedProto) + "://" + host
}

// Protocol picks the scheme for URLs built from host. A forwarded http or
// https from the proxy wins; other values are ignored. Local development
// hosts use http.
func Protocol(host, forwardedProto string) string {
	switch p := strings.ToLower(strings.TrimSpace(strings.Split(forwardedProto, ",")[0])); p {
	case "http", "https":
		return p
	}
	for _, h := range plainHTTPHosts {
		if strings.Contains(host, h) {
			return "http"
		}
	}
	return "https"
}

func (s *discoveryService) AuthorizationServerMetadata(baseURL string) AuthorizationServerMetadata {
	return AuthorizationServerMetadata{
		Issuer:                                 baseURL,
		AuthorizationEndpoint:                  baseURL + AuthorizePath,
		TokenEndpoint:                          baseURL + TokenPath,
		RegistrationEndpoint:                   baseURL + RegisterPath,
		RevocationEndpoint:                     baseURL + RevokePath,
		ScopesSupported:                        SupportedScopes,
		ResponseTypesSupported:                 []string{oauth2.Code.String()},
		ResponseModesSupported:                 []string{"query"},
		GrantTypesSupported:                    []string{oauth2.AuthorizationCode.String(), oauth2.Refreshing.String()},
		CodeChallengeMethodsSupported:          []string{string(oauth2.CodeChallengeS256)},
		TokenEndpointAuthMethodsSupported:      []string{"client_secret_basic", "client_secret_post", "none"},
		RevocationEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post", "none"},
		ServiceDocumentation:                   baseURL + DocumentationPath,
		UILocalesSupported:                     []string{"en"},
		MCPEndpoint:                            baseURL + MCPPath,
	}
}

func (s *discoveryService) ProtectedResourceMetadata(baseURL string) ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Resource:               baseURL + MCPPath,
		AuthorizationServers:   []string{baseURL},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        SupportedScopes,
		ResourceDocumentation:  baseURL + DocumentationPath,
	}
}

func (s *discoveryService) Index(baseURL string) WellKnownIndex {
	return WellKnownIndex{Links: []WellKnownLink{
		{Rel: "oauth-authorization-server", Href: baseURL + AuthServerPath},
		{Rel: "openid-configuration", Href: baseURL + OpenIDConfigPath},
		{Rel: "oauth-protected-resource", Href: baseURL + ProtectedResourcePath},
	}}
}
