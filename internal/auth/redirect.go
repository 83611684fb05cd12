package auth

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var (
	schemePattern    = regexp.MustCompile(`^[a-z][a-z0-9+.\-]*$`)
	forbiddenSchemes = []string{"javascript", "data", "file", "vbscript"}
)

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// MatchRedirectURI reports whether requested is one of the registered
// redirect URIs. Loopback URIs match on any port (RFC 8252 section 7.3).
func MatchRedirectURI(registered []string, requested string) bool {
	if requested == "" {
		return false
	}
	if slices.Contains(registered, requested) {
		return true
	}

	req, err := url.Parse(requested)
	if err != nil || !isLoopbackHost(req.Hostname()) {
		return false
	}
	for _, r := range registered {
		reg, err := url.Parse(r)
		if err != nil || !isLoopbackHost(reg.Hostname()) {
			continue
		}
		if reg.Scheme == req.Scheme &&
			reg.Hostname() == req.Hostname() &&
			reg.Path == req.Path &&
			reg.RawQuery == req.RawQuery {
			return true
		}
	}
	return false
}

// ValidateRedirectURI checks a redirect URI offered at registration. https
// URIs need a host, http is only allowed for loopback, and private-use
// schemes such as claude:// are accepted for native apps.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid URI", errInvalidRedirectURI, raw)
	}
	if strings.Contains(raw, "#") {
		return fmt.Errorf("%w: %q must not contain a fragment", errInvalidRedirectURI, raw)
	}

	switch u.Scheme {
	case "https":
		if u.Host == "" {
			return fmt.Errorf("%w: %q has no host", errInvalidRedirectURI, raw)
		}
	case "http":
		if u.Host == "" || !isLoopbackHost(u.Hostname()) {
			return fmt.Errorf("%w: http is only allowed for loopback hosts", errInvalidRedirectURI)
		}
	case "":
		return fmt.Errorf("%w: %q is not an absolute URI", errInvalidRedirectURI, raw)
	default:
		if !schemePattern.MatchString(u.Scheme) || slices.Contains(forbiddenSchemes, u.Scheme) {
			return fmt.Errorf("%w: scheme %q is not allowed", errInvalidRedirectURI, u.Scheme)
		}
	}
	return nil
}
