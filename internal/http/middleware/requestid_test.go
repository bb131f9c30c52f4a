package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newRequestIDProbe() (http.Handler, *string) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	handler, seen := newRequestIDProbe()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if *seen == "" || *seen == "unknown" {
		t.Fatalf("handler saw request id %q", *seen)
	}
	if header := recorder.Header().Get("X-Request-Id"); header != *seen {
		t.Errorf("response header %q does not match context id %q", header, *seen)
	}
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	handler, seen := newRequestIDProbe()

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("X-Request-Id", "client-supplied-id")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if *seen != "client-supplied-id" {
		t.Errorf("handler saw %q, want the client id", *seen)
	}
}

func TestRequestIDReplacesOversizedClientValue(t *testing.T) {
	handler, seen := newRequestIDProbe()

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if len(*seen) > maxClientRequestIDLength {
		t.Errorf("oversized client id passed through: %d chars", len(*seen))
	}
	if *seen == "" || *seen == "unknown" {
		t.Errorf("handler saw request id %q", *seen)
	}
}
