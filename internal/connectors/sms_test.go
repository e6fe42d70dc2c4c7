package connectors

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSMSForward(t *testing.T) {
	var gotMethod, gotAPIKey string
	var gotBody smsForwardRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAPIKey = r.Header.Get("x-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	h := &SMSHandler{ForwardURL: upstream.URL, APIKey: "secret-key"}
	w := postForm(t, h, "/webhooks/twilio/sms", url.Values{
		"From": {"+15551234567"},
		"Body": {"remember the milk"},
	})

	if gotMethod != http.MethodPut {
		t.Errorf("upstream method = %s, want PUT", gotMethod)
	}
	if gotAPIKey != "secret-key" {
		t.Errorf("x-api-key = %q", gotAPIKey)
	}
	want := smsForwardRequest{PhoneNumber: "+15551234567", Message: "remember the milk"}
	if gotBody != want {
		t.Errorf("forwarded body = %+v, want %+v", gotBody, want)
	}
	// The upstream response is relayed unchanged.
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if w.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestSMSMissingFrom(t *testing.T) {
	h := &SMSHandler{ForwardURL: "http://unused.invalid"}
	w := postForm(t, h, "/webhooks/twilio/sms", url.Values{"Body": {"hello"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSMSMethodNotAllowed(t *testing.T) {
	h := &SMSHandler{ForwardURL: "http://unused.invalid"}
	req := httptest.NewRequest(http.MethodGet, "/webhooks/twilio/sms", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestSMSUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // refuse connections

	h := &SMSHandler{ForwardURL: upstream.URL}
	w := postForm(t, h, "/webhooks/twilio/sms", url.Values{"From": {"+15551234567"}})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestTwiml(t *testing.T) {
	got := twiml("Thank you John & Jane!")
	want := `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Thank you John &amp; Jane!</Say></Response>`
	if got != want {
		t.Errorf("twiml = %q, want %q", got, want)
	}
}
