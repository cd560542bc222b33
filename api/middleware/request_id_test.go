package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDKeepsWellFormedInboundID(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(RequestIDHeader, "lb-7f3a.12")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "lb-7f3a.12" {
		t.Fatalf("expected inbound id to be echoed, got %q", got)
	}
}

func TestRequestIDReplacesMalformedInboundID(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, inbound := range []string{"", "bad id\nforged=1", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set(RequestIDHeader, inbound)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get(RequestIDHeader)
		if got == "" || got == inbound || len(got) != 36 {
			t.Fatalf("expected a fresh uuid for %q, got %q", inbound, got)
		}
	}
}
