// Package twilio is a minimal Twilio REST client for the connector webhooks:
// call resource fetches and caller-name/carrier lookups.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Client is a Twilio API client.
type Client struct {
	accountSID    string
	authToken     string
	baseURL       string
	lookupBaseURL string
	httpClient    *http.Client
}

// Config configures the Twilio client. Credentials fall back to the
// TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN environment variables.
type Config struct {
	AccountSID    string
	AuthToken     string
	BaseURL       string
	LookupBaseURL string
	HTTPClient    *http.Client
}

// New creates a new Twilio client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	accountSID := cfg.AccountSID
	if accountSID == "" {
		accountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if accountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID is required")
	}

	authToken := cfg.AuthToken
	if authToken == "" {
		authToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if authToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twilio.com/2010-04-01"
	}

	lookupBaseURL := cfg.LookupBaseURL
	if lookupBaseURL == "" {
		lookupBaseURL = "https://lookups.twilio.com/v1"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		accountSID:    accountSID,
		authToken:     authToken,
		baseURL:       baseURL,
		lookupBaseURL: lookupBaseURL,
		httpClient:    httpClient,
	}, nil
}

// Call represents a Twilio call resource.
type Call struct {
	SID       string `json:"sid"`
	To        string `json:"to"`
	From      string `json:"from"`
	Status    string `json:"status"`
	Direction string `json:"direction"`
	Duration  string `json:"duration"`
}

// GetCall retrieves a call by SID.
func (c *Client) GetCall(ctx context.Context, callSID string) (*Call, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)

	var call Call
	if err := c.get(ctx, endpoint, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// CallerInfo is the lookup result for a phone number. Caller name is a paid
// feature and may be empty.
type CallerInfo struct {
	CallerName  string
	CallerType  string
	CarrierName string
	CarrierType string
}

type lookupResponse struct {
	CallerName *struct {
		CallerName string `json:"caller_name"`
		CallerType string `json:"caller_type"`
	} `json:"caller_name"`
	Carrier *struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"carrier"`
}

// LookupCaller resolves caller name and carrier for a phone number.
func (c *Client) LookupCaller(ctx context.Context, phoneNumber string) (*CallerInfo, error) {
	endpoint := fmt.Sprintf("%s/PhoneNumbers/%s?Type=carrier&Type=caller-name",
		c.lookupBaseURL, url.PathEscape(phoneNumber))

	var body lookupResponse
	if err := c.get(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	info := &CallerInfo{}
	if body.CallerName != nil {
		info.CallerName = body.CallerName.CallerName
		info.CallerType = body.CallerName.CallerType
	}
	if body.Carrier != nil {
		info.CarrierName = body.Carrier.Name
		info.CarrierType = body.Carrier.Type
	}
	return info, nil
}

// Error represents a Twilio API error.
type Error struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("twilio error %d: %s", e.Code, e.Message)
}

// get performs an authenticated GET request and decodes the response.
func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr Error
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return fmt.Errorf("twilio error: %s", string(body))
		}
		return &apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
