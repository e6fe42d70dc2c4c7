package persona

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 2 {
		t.Fatalf("len(Catalog()) = %d, want 2", len(catalog))
	}
	for _, p := range catalog {
		if p.ID == "" || p.DisplayName == "" || p.SamplePath == "" || p.Transcript == "" {
			t.Errorf("persona %+v has empty fields", p)
		}
		if p.PlaybackLength <= 0 {
			t.Errorf("persona %s has no playback length", p.ID)
		}
	}
}

func TestGet(t *testing.T) {
	p, ok := Get("A")
	if !ok || p.DisplayName != "Arnold Schwarzenegger" {
		t.Fatalf("Get(A) = %+v, %v", p, ok)
	}
	if _, ok := Get("Z"); ok {
		t.Fatal("Get(Z) found a persona")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sample-voice-memos/arnold-test.webm" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("webm-bytes"))
	}))
	defer srv.Close()

	lib := NewLibrary(srv.URL, t.TempDir())
	artifact, err := lib.Fetch(context.Background(), "A")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("reading downloaded sample: %v", err)
	}
	if string(data) != "webm-bytes" {
		t.Errorf("sample content = %q", data)
	}
	if artifact.MimeType != "audio/webm" {
		t.Errorf("MimeType = %q", artifact.MimeType)
	}
	if artifact.Duration != 28*time.Second {
		t.Errorf("Duration = %v, want the persona playback length", artifact.Duration)
	}
}

func TestFetchUnknownPersona(t *testing.T) {
	lib := NewLibrary("http://unused.invalid", t.TempDir())
	_, err := lib.Fetch(context.Background(), "Z")
	if !errors.Is(err, recorder.ErrUnknownPersona) {
		t.Fatalf("err = %v, want ErrUnknownPersona", err)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := NewLibrary(srv.URL, t.TempDir()).Fetch(context.Background(), "B"); err == nil {
		t.Fatal("expected error for a missing sample")
	}
}
