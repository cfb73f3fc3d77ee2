package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(cfg Config) http.Handler {
	return Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func get(h http.Handler, path, authorization string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestMiddlewareDisabled(t *testing.T) {
	h := authedHandler(Config{Enabled: false})
	if code := get(h, "/api/v1/catalog", ""); code != http.StatusOK {
		t.Errorf("code = %d, want 200 when auth disabled", code)
	}
}

func TestMiddlewareEnforcesToken(t *testing.T) {
	h := authedHandler(Config{Enabled: true, Token: "hunter2"})

	tests := []struct {
		name          string
		authorization string
		want          int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing scheme", "hunter2", http.StatusUnauthorized},
		{"valid token", "Bearer hunter2", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := get(h, "/api/v1/catalog", tt.authorization); code != tt.want {
				t.Errorf("code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestMiddlewareExemptPaths(t *testing.T) {
	h := authedHandler(Config{Enabled: true, Token: "hunter2"})
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if code := get(h, path, ""); code != http.StatusOK {
			t.Errorf("%s: code = %d, want 200 without credentials", path, code)
		}
	}
	if code := get(h, "/api/v1/state/25544", ""); code != http.StatusUnauthorized {
		t.Errorf("per-object route: code = %d, want 401", code)
	}
}
