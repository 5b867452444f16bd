package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/passgap/internal/config"
)

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.SecurityConfig
		key    string
		status int
		code   string
	}{
		{
			name:   "disabled passes without key",
			cfg:    config.SecurityConfig{},
			status: http.StatusOK,
		},
		{
			name:   "missing key",
			cfg:    config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			status: http.StatusUnauthorized,
			code:   "AUTH001",
		},
		{
			name:   "wrong key",
			cfg:    config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			key:    "k2",
			status: http.StatusForbidden,
			code:   "AUTH002",
		},
		{
			name:   "second configured key",
			cfg:    config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}},
			key:    "k2",
			status: http.StatusOK,
		},
		{
			name:   "required with no keys rejects",
			cfg:    config.SecurityConfig{RequireAPIKey: true},
			key:    "anything",
			status: http.StatusForbidden,
			code:   "AUTH002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			h := APIKeyAuth(&cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/compare", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.code != "" && !strings.Contains(rec.Body.String(), tt.code) {
				t.Errorf("body %q does not contain code %s", rec.Body.String(), tt.code)
			}
		})
	}
}

func TestIsValidAPIKey(t *testing.T) {
	if isValidAPIKey("", nil) {
		t.Error("empty key with no keys should be invalid")
	}
	if isValidAPIKey("abc", []string{"abcd"}) {
		t.Error("prefix must not match")
	}
	if !isValidAPIKey("abc", []string{"x", "abc"}) {
		t.Error("exact match should be valid")
	}
}
