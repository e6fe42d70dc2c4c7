package connectors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// SMSHandler forwards inbound Twilio SMS webhooks to the backend API as
// {phone_number, message} with an API-key header. Pure glue: no branching
// beyond input validation.
type SMSHandler struct {
	ForwardURL string
	APIKey     string
	HTTPClient *http.Client
}

// smsForwardRequest matches the backend's inbound-message endpoint.
type smsForwardRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

func (h *SMSHandler) client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (h *SMSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "parsing form", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(smsForwardRequest{PhoneNumber: from, Message: body})
	if err != nil {
		http.Error(w, "encoding payload", http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPut, h.ForwardURL, bytes.NewReader(payload))
	if err != nil {
		http.Error(w, "building forward request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("x-api-key", h.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client().Do(req)
	if err != nil {
		log.Printf("forwarding sms from %s: %v", from, err)
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	// Relay the upstream response as-is.
	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("relaying sms response: %v", err)
	}
}

var _ http.Handler = (*SMSHandler)(nil)

// twiml renders a minimal TwiML voice response.
func twiml(say string) string {
	return fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><Response><Say>%s</Say></Response>`,
		xmlEscape(say),
	)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
