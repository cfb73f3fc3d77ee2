package httputil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doReq(h http.Handler, remoteAddr, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 3, false, nil, testLogger)
	h := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		if code := doReq(h, "10.0.0.1:1234", "/api/v1/catalog"); code != http.StatusOK {
			t.Fatalf("request %d: code = %d, want 200", i, code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-burst code = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimiterPerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(1, 1, false, nil, testLogger)
	h := rl.Middleware(okHandler())

	if code := doReq(h, "10.0.0.1:1234", "/x"); code != http.StatusOK {
		t.Fatalf("first client: code = %d", code)
	}
	if code := doReq(h, "10.0.0.1:1234", "/x"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request: code = %d, want 429", code)
	}
	// A different client has its own bucket.
	if code := doReq(h, "10.0.0.2:1234", "/x"); code != http.StatusOK {
		t.Fatalf("second client: code = %d, want 200", code)
	}
}

func TestRateLimiterExemptPaths(t *testing.T) {
	rl := NewRateLimiter(1, 1, false, []string{"/healthz", "/metrics"}, testLogger)
	h := rl.Middleware(okHandler())

	for i := 0; i < 10; i++ {
		if code := doReq(h, "10.0.0.1:1234", "/healthz"); code != http.StatusOK {
			t.Fatalf("exempt request %d: code = %d", i, code)
		}
	}
	// The bucket is untouched by exempt traffic.
	if code := doReq(h, "10.0.0.1:1234", "/api/v1/catalog"); code != http.StatusOK {
		t.Fatalf("limited path after exempt traffic: code = %d", code)
	}
}

func TestRateLimiterTrustProxy(t *testing.T) {
	rl := NewRateLimiter(1, 1, true, nil, testLogger)
	h := rl.Middleware(okHandler())

	// Same socket, distinct forwarded clients: separate buckets.
	for i, ip := range []string{"203.0.113.5", "203.0.113.6"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("forwarded client %d: code = %d", i, rec.Code)
		}
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	rl := NewRateLimiter(1000, 1000, false, nil, testLogger)
	h := rl.Middleware(okHandler())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doReq(h, "10.0.0.1:1234", "/x")
		}()
	}
	wg.Wait()
}
