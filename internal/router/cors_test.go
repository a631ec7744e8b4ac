package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"OutdoorAPI/internal/config"
)

func corsHandler(allowOrigin string, allowCredentials bool, h http.HandlerFunc) http.HandlerFunc {
	cfg := config.CORSConfig{AllowOrigin: allowOrigin, AllowCredentials: allowCredentials}
	return newCORSPolicy(cfg, []string{http.MethodGet, http.MethodPost}).wrap(h)
}

func TestWithCORS_AllowsSingleOrigin(t *testing.T) {
	h := corsHandler("http://localhost:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cabins", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Fatalf("unexpected vary: %q", got)
	}
}

func TestWithCORS_AllowsFromCSVList(t *testing.T) {
	h := corsHandler("http://192.168.0.251:3000,http://cbs:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cabins", nil)
	req.Header.Set("Origin", "http://cbs:3000")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://cbs:3000" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestWithCORS_BlocksUnknownOriginFromCSVList(t *testing.T) {
	h := corsHandler("http://192.168.0.251:3000,http://cbs:3000", false, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cabins", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin for blocked origin: %q", got)
	}
}

func TestWithCORS_CredentialsEchoOrigin(t *testing.T) {
	h := corsHandler("*", true, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cabins", nil)
	req.Header.Set("Origin", "https://ut.no")
	w := httptest.NewRecorder()
	h(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ut.no" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("unexpected allow credentials: %q", got)
	}
}

func TestCORSPolicy_MethodsDeduplicated(t *testing.T) {
	p := newCORSPolicy(config.CORSConfig{}, []string{http.MethodGet, http.MethodGet, http.MethodPost})
	if p.methods != "GET, POST, OPTIONS" {
		t.Fatalf("unexpected methods: %q", p.methods)
	}
	if !p.anyOrigin {
		t.Fatalf("empty origin list should allow any origin")
	}
}
