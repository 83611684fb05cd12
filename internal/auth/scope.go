package auth

import (
	"slices"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
)

// ParseScope splits a space separated scope string, dropping duplicates.
func ParseScope(scope string) []string {
	var out []string
	for _, s := range strings.Fields(scope) {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func JoinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

// IsScopeSubset reports whether every scope in requested is also in granted.
func IsScopeSubset(requested, granted string) bool {
	allowed := ParseScope(granted)
	for _, s := range ParseScope(requested) {
		if !slices.Contains(allowed, s) {
			return false
		}
	}
	return true
}

// resolveScope returns the scope to grant for a request. An empty request
// means everything the client may have.
func resolveScope(requested, clientScope string) (string, bool) {
	if clientScope == "" {
		clientScope = JoinScope(services.SupportedScopes)
	}
	if strings.TrimSpace(requested) == "" {
		return JoinScope(ParseScope(clientScope)), true
	}
	if !IsScopeSubset(requested, clientScope) || !IsScopeSubset(requested, JoinScope(services.SupportedScopes)) {
		return "", false
	}
	return JoinScope(ParseScope(requested)), true
}
