package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestOpenTelemetryPassesRequestsThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(OpenTelemetry(WithTracerName("test")))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Errorf("response = (%d, %q)", rec.Code, rec.Body.String())
	}
}

func TestOpenTelemetryFilterSkipsRequests(t *testing.T) {
	filtered := 0
	mw := OpenTelemetry(WithRequestFilter(func(r *http.Request) bool {
		filtered++
		return false
	}))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Code != 204 {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if filtered != 1 {
		t.Errorf("filter called %d times, want 1", filtered)
	}
}
