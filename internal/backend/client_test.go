package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

func writeArtifact(t *testing.T, content string) recorder.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.webm")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return recorder.Artifact{Path: path, MimeType: "audio/webm"}
}

func newClient(t *testing.T, baseURL string, uploadTimeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, UploadTimeout: uploadTimeout})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestFetchUploadTarget(t *testing.T) {
	var gotAccount, gotHash string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/upload/voice" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAccount = r.Header.Get("X-Account-Id")
		gotHash = r.Header.Get("X-Recording-Hash")
		json.NewEncoder(w).Encode(map[string]any{
			"presigned_url": "https://bucket.s3/put?sig=abc",
			"account_id":    "acc-42",
			"email":         "user@example.com",
		})
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 0)
	target, err := c.FetchUploadTarget(context.Background(), "acc-42", writeArtifact(t, "opus-bytes"))
	if err != nil {
		t.Fatalf("FetchUploadTarget: %v", err)
	}

	if gotAccount != "acc-42" {
		t.Errorf("X-Account-Id = %q, want acc-42", gotAccount)
	}
	if len(gotHash) != 64 {
		t.Errorf("X-Recording-Hash = %q, want a 32-byte hex digest", gotHash)
	}
	want := recorder.UploadTarget{PresignedURL: "https://bucket.s3/put?sig=abc", AccountID: "acc-42", Email: "user@example.com"}
	if target != want {
		t.Errorf("target = %+v, want %+v", target, want)
	}
}

func TestFetchUploadTargetNullEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"presigned_url":"https://bucket.s3/put","account_id":"acc-1","email":null}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 0)
	target, err := c.FetchUploadTarget(context.Background(), "", writeArtifact(t, "x"))
	if err != nil {
		t.Fatalf("FetchUploadTarget: %v", err)
	}
	if target.Email != "" {
		t.Errorf("Email = %q, want empty for a null address", target.Email)
	}
}

func TestFetchUploadTargetOmitsAccountHeaderWhenUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["X-Account-Id"]; ok {
			t.Error("X-Account-Id sent for a first-time device")
		}
		w.Write([]byte(`{"presigned_url":"u","account_id":"acc-1","email":null}`))
	}))
	defer srv.Close()

	if _, err := newClient(t, srv.URL, 0).FetchUploadTarget(context.Background(), "", writeArtifact(t, "x")); err != nil {
		t.Fatal(err)
	}
}

func TestFetchUploadTargetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 0).FetchUploadTarget(context.Background(), "acc-1", writeArtifact(t, "x"))
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 500 {
		t.Fatalf("err = %v, want HTTPError{500}", err)
	}
}

func TestTransfer(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	artifact := writeArtifact(t, "opus-bytes")
	err := newClient(t, srv.URL, 0).Transfer(context.Background(), artifact, recorder.UploadTarget{PresignedURL: srv.URL + "/put"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotContentType != "audio/webm" {
		t.Errorf("Content-Type = %q, want audio/webm", gotContentType)
	}
	if gotBody != "opus-bytes" {
		t.Errorf("body = %q, want the artifact bytes", gotBody)
	}
}

func TestTransferTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL, 50*time.Millisecond)
	err := c.Transfer(context.Background(), writeArtifact(t, "x"), recorder.UploadTarget{PresignedURL: srv.URL + "/put"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTransferRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL, 0).Transfer(context.Background(), writeArtifact(t, "x"), recorder.UploadTarget{PresignedURL: srv.URL + "/put"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 403 {
		t.Fatalf("err = %v, want HTTPError{403}", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("a rejected upload must not look like a timeout")
	}
}

func TestTransferMissingArtifact(t *testing.T) {
	c := newClient(t, "http://unused.invalid", 0)
	err := c.Transfer(context.Background(), recorder.Artifact{Path: "/nonexistent/rec.webm"}, recorder.UploadTarget{PresignedURL: "http://unused.invalid"})
	if err == nil {
		t.Fatal("expected error for a missing artifact file")
	}
}

func TestRegister(t *testing.T) {
	var got registerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload/voice" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL, 0).Register(context.Background(), "user@example.com", true, "acc-42")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := registerRequest{Email: "user@example.com", TosAccepted: true, AccountID: "acc-42"}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestRegisterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL, 0).Register(context.Background(), "user@example.com", true, "acc-42")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 502 {
		t.Fatalf("err = %v, want HTTPError{502}", err)
	}
}
