package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// securityHeaders runs a request through SecurityHeadersMiddleware and returns
// the response headers.
func securityHeaders(cfg SecurityHeadersConfig) http.Header {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w.Header()
}

func TestAPISecurityHeadersConfig(t *testing.T) {
	cfg := APISecurityHeadersConfig()

	if !cfg.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
	if cfg.EnableXSSProtection {
		t.Error("EnableXSSProtection = true, want false for JSON responses")
	}
	if !strings.Contains(cfg.ContentSecurityPolicy, "default-src 'none'") {
		t.Errorf("CSP = %q, want a deny-all policy for the API", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy = %q, want no-referrer", cfg.ReferrerPolicy)
	}
}

func TestDefaultSecurityHeadersConfig(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig()

	if cfg.HSTSMaxAge != 31536000 {
		t.Errorf("HSTSMaxAge = %d, want one year", cfg.HSTSMaxAge)
	}
	if cfg.FrameOptionsValue != "DENY" {
		t.Errorf("FrameOptionsValue = %q, want DENY", cfg.FrameOptionsValue)
	}
	// Document previews render blob: URLs, so the page CSP must allow them.
	if !strings.Contains(cfg.ContentSecurityPolicy, "blob:") {
		t.Errorf("CSP = %q, want img-src to allow blob:", cfg.ContentSecurityPolicy)
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	t.Run("with subdomains, no preload", func(t *testing.T) {
		h := securityHeaders(SecurityHeadersConfig{
			EnableHSTS:            true,
			HSTSMaxAge:            31536000,
			HSTSIncludeSubdomains: true,
		})
		hsts := h.Get("Strict-Transport-Security")
		if !strings.Contains(hsts, "max-age=31536000") || !strings.Contains(hsts, "includeSubDomains") {
			t.Errorf("HSTS = %q, want max-age and includeSubDomains", hsts)
		}
		if strings.Contains(hsts, "preload") {
			t.Errorf("HSTS = %q, preload should be absent", hsts)
		}
	})

	t.Run("preload", func(t *testing.T) {
		h := securityHeaders(SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 86400, HSTSPreload: true})
		if hsts := h.Get("Strict-Transport-Security"); !strings.Contains(hsts, "preload") {
			t.Errorf("HSTS = %q, want preload", hsts)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := securityHeaders(SecurityHeadersConfig{EnableHSTS: false})
		if got := h.Get("Strict-Transport-Security"); got != "" {
			t.Errorf("HSTS should be absent when disabled, got %q", got)
		}
	})
}

func TestSecurityHeadersMiddleware_Toggles(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SecurityHeadersConfig
		header string
		want   string
	}{
		{"frame options deny", SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "DENY"}, "X-Frame-Options", "DENY"},
		{"frame options sameorigin", SecurityHeadersConfig{EnableFrameOptions: true, FrameOptionsValue: "SAMEORIGIN"}, "X-Frame-Options", "SAMEORIGIN"},
		{"frame options off", SecurityHeadersConfig{FrameOptionsValue: "DENY"}, "X-Frame-Options", ""},
		{"nosniff on", SecurityHeadersConfig{EnableContentTypeOptions: true}, "X-Content-Type-Options", "nosniff"},
		{"nosniff off", SecurityHeadersConfig{}, "X-Content-Type-Options", ""},
		{"xss protection on", SecurityHeadersConfig{EnableXSSProtection: true}, "X-XSS-Protection", "1; mode=block"},
		{"xss protection off", SecurityHeadersConfig{}, "X-XSS-Protection", ""},
		{"csp set", SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'self'"}, "Content-Security-Policy", "default-src 'self'"},
		{"csp empty", SecurityHeadersConfig{}, "Content-Security-Policy", ""},
		{"referrer policy set", SecurityHeadersConfig{ReferrerPolicy: "no-referrer"}, "Referrer-Policy", "no-referrer"},
		{"permissions policy set", SecurityHeadersConfig{PermissionsPolicy: "geolocation=()"}, "Permissions-Policy", "geolocation=()"},
		{"permissions policy empty", SecurityHeadersConfig{}, "Permissions-Policy", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := securityHeaders(tt.cfg).Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestSecurityHeadersMiddleware_AlwaysOnHeaders(t *testing.T) {
	h := securityHeaders(SecurityHeadersConfig{})
	for header, want := range map[string]string{
		"X-Permitted-Cross-Domain-Policies": "none",
		"Cross-Origin-Embedder-Policy":      "require-corp",
		"Cross-Origin-Opener-Policy":        "same-origin",
		"Cross-Origin-Resource-Policy":      "same-origin",
	} {
		if got := h.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
