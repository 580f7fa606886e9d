package token

import (
	"net/http"
	"net/url"
	"strings"
)

// NormalizeHost extracts a comparable hostname from a raw URL: lowercased,
// with any leading "www." stripped. Returns "" when no host can be derived.
func NormalizeHost(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	host = strings.TrimPrefix(host, "www.")
	return host
}

// HostsRelated reports whether two normalized hosts belong to the same site,
// tolerating subdomains in either direction (app.example.com vs example.com).
func HostsRelated(sourceHost, siteHost string) bool {
	if sourceHost == "" || siteHost == "" {
		return false
	}
	return sourceHost == siteHost ||
		strings.HasSuffix(sourceHost, "."+siteHost) ||
		strings.HasSuffix(siteHost, "."+sourceHost)
}

// ValidateOrigin checks that the request's Referer or Origin header matches
// the site URL. Requests carrying neither header pass: some deployments strip
// them, and the event token remains the authoritative check.
func ValidateOrigin(r *http.Request, siteURL string) bool {
	siteHost := NormalizeHost(siteURL)
	if siteHost == "" {
		return true
	}

	if refererHost := NormalizeHost(r.Header.Get("Referer")); refererHost != "" {
		return HostsRelated(refererHost, siteHost)
	}

	if originHost := NormalizeHost(r.Header.Get("Origin")); originHost != "" {
		return HostsRelated(originHost, siteHost)
	}

	return true
}
