// Package backend is the HTTP client for the external dumpsheet API: it
// issues upload targets, receives the audio artifact, and records the
// contact email. Everything clever lives behind this API; this client only
// honors its contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"lukechampine.com/blake3"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

const uploadPath = "/upload/voice"

// ErrTimeout marks an upload that did not finish within the deadline.
var ErrTimeout = errors.New("upload timed out")

// HTTPError is a non-2xx response from the backend or the storage target.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Config configures the backend client.
type Config struct {
	BaseURL       string
	UploadTimeout time.Duration // deadline for the artifact transfer
	HTTPClient    *http.Client
}

// Client talks to the backend API. It implements recorder.Uploader and
// recorder.Registrar.
type Client struct {
	baseURL       string
	uploadTimeout time.Duration
	httpClient    *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		uploadTimeout: cfg.UploadTimeout,
		httpClient:    httpClient,
	}, nil
}

// uploadTargetResponse matches the presigned-URL endpoint response.
type uploadTargetResponse struct {
	PresignedURL string  `json:"presigned_url"`
	AccountID    string  `json:"account_id"`
	Email        *string `json:"email"`
}

// FetchUploadTarget obtains a fresh single-use upload target. The device
// account id, when known, lets the backend recognize a returning user; the
// artifact hash identifies the recording for idempotency.
func (c *Client) FetchUploadTarget(ctx context.Context, accountID string, artifact recorder.Artifact) (recorder.UploadTarget, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+uploadPath, nil)
	if err != nil {
		return recorder.UploadTarget{}, err
	}
	if accountID != "" {
		req.Header.Set("X-Account-Id", accountID)
	}
	if hash, err := hashArtifact(artifact.Path); err == nil {
		req.Header.Set("X-Recording-Hash", hash)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recorder.UploadTarget{}, fmt.Errorf("fetching upload target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return recorder.UploadTarget{}, fmt.Errorf("fetching upload target: %w", &HTTPError{Status: resp.StatusCode})
	}

	var body uploadTargetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return recorder.UploadTarget{}, fmt.Errorf("parsing upload target: %w", err)
	}

	target := recorder.UploadTarget{
		PresignedURL: body.PresignedURL,
		AccountID:    body.AccountID,
	}
	if body.Email != nil {
		target.Email = *body.Email
	}
	return target, nil
}

// Transfer PUTs the artifact to the presigned URL, racing the configured
// deadline. No retry: a single failed attempt surfaces to the caller and the
// artifact stays on disk.
func (c *Client) Transfer(ctx context.Context, artifact recorder.Artifact, target recorder.UploadTarget) error {
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return fmt.Errorf("reading artifact: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.PresignedURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	// Must match what the backend presigned the storage object with.
	req.Header.Set("Content-Type", artifact.MimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("transferring artifact: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode}
	}
	return nil
}

// registerRequest matches the email registration endpoint body.
type registerRequest struct {
	Email       string `json:"email"`
	TosAccepted bool   `json:"tos_accepted"`
	AccountID   string `json:"account_id"`
}

// Register records the contact email and ToS acceptance for the account.
func (c *Client) Register(ctx context.Context, email string, tosAccepted bool, accountID string) error {
	payload, err := json.Marshal(registerRequest{
		Email:       email,
		TosAccepted: tosAccepted,
		AccountID:   accountID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registering email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("registering email: %w", &HTTPError{Status: resp.StatusCode})
	}
	return nil
}

func hashArtifact(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing artifact: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
