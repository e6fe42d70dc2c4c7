package connectors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServerRoutes(t *testing.T) {
	srv := NewServer(":0", &SMSHandler{ForwardURL: "http://unused.invalid"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}

	// The recording route stays unmounted when its handler is nil.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/twilio/recording", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unmounted route = %d, want 404", w.Code)
	}
}
