package token

import (
	"net/http/httptest"
	"testing"
)

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://example.com", "example.com"},
		{"https://www.example.com/page?q=1", "example.com"},
		{"http://EXAMPLE.com:8080/path", "example.com"},
		{"https://app.example.com", "app.example.com"},
		{"", ""},
		{"not a url", ""},
		{"/relative/path", ""},
	}

	for _, tt := range tests {
		if got := NormalizeHost(tt.rawURL); got != tt.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
}

func TestHostsRelated(t *testing.T) {
	tests := []struct {
		source string
		site   string
		want   bool
	}{
		{"example.com", "example.com", true},
		{"app.example.com", "example.com", true},
		{"example.com", "app.example.com", true},
		{"evil.com", "example.com", false},
		{"notexample.com", "example.com", false},
		{"example.com.evil.com", "example.com", false},
		{"", "example.com", false},
		{"example.com", "", false},
	}

	for _, tt := range tests {
		if got := HostsRelated(tt.source, tt.site); got != tt.want {
			t.Errorf("HostsRelated(%q, %q) = %v, want %v", tt.source, tt.site, got, tt.want)
		}
	}
}

func TestValidateOrigin(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		origin  string
		siteURL string
		want    bool
	}{
		{"matching referer", "https://example.com/page", "", "https://example.com", true},
		{"subdomain referer", "https://app.example.com/", "", "https://example.com", true},
		{"www referer", "https://www.example.com/", "", "https://example.com", true},
		{"foreign referer", "https://evil.com/", "", "https://example.com", false},
		{"matching origin only", "", "https://example.com", "https://example.com", true},
		{"foreign origin only", "", "https://evil.com", "https://example.com", false},
		{"referer wins over origin", "https://evil.com/", "https://example.com", "https://example.com", false},
		{"no headers pass", "", "", "https://example.com", true},
		{"unparseable site URL passes", "https://evil.com/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/bridge/gl_abc/events", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			if got := ValidateOrigin(req, tt.siteURL); got != tt.want {
				t.Errorf("ValidateOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHostsRelatedSuffixGuard(t *testing.T) {
	// A suffix match must sit on a label boundary.
	if HostsRelated("badexample.com", "example.com") {
		t.Error("badexample.com must not relate to example.com")
	}
	if HostsRelated("sub.badexample.com", "example.com") {
		t.Error("sub.badexample.com must not relate to example.com")
	}
}
