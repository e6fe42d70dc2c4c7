// Package persona holds the demo personas: pre-recorded sample memos that
// walk a new user through the flow without needing a live microphone.
package persona

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

// Persona is a narrated sample recording plus its transcript.
type Persona struct {
	ID             string
	DisplayName    string
	SamplePath     string // relative to the asset base URL
	RecordingTitle string
	Transcript     string
	// PlaybackLength approximates how long the sample runs, for the CLI's
	// simulated playback.
	PlaybackLength time.Duration
}

// Catalog returns the available personas in display order.
func Catalog() []Persona {
	return []Persona{
		{
			ID:             "A",
			DisplayName:    "Arnold Schwarzenegger",
			SamplePath:     "/sample-voice-memos/arnold-test.webm",
			RecordingTitle: "Terminators mission John Connor",
			Transcript: "If you've seen my movies, you might think this is about terminating you. " +
				"Today, it's about protecting John Connor, the future leader of human resistance. " +
				"His needs are survival and skill development. My job? Keep him safe and train him in combat. " +
				"Because the fate of humanity rests on his shoulders. " +
				"It's not just \"Hasta la vista, baby\" - it's shaping the future, one mission at a time.",
			PlaybackLength: 28 * time.Second,
		},
		{
			ID:             "B",
			DisplayName:    "Taylor Swift",
			SamplePath:     "/sample-voice-memos/taylor-swift-and-travis.webm",
			RecordingTitle: "Taylor meets Travis Kelce",
			Transcript: "So I finish this gig at Arrowhead Stadium, home of the Chiefs, and what do I find " +
				"but a friendship bracelet from tight end Travis Kelce himself. He couldn't chat at the show - " +
				"vocal rest and all. Later on, there's Travis in New York, knee injury and all, trying to " +
				"downplay the whole 'I almost missed the season' thing. We ended up joking about turning his " +
				"on-field audibles into song lyrics. Who knew NFL plays could sound so poetic?",
			PlaybackLength: 30 * time.Second,
		},
	}
}

// Get returns the persona with the given id.
func Get(id string) (Persona, bool) {
	for _, p := range Catalog() {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Library downloads persona samples so they can be fed through the upload
// path like a captured artifact. It implements recorder.SampleLibrary.
type Library struct {
	baseURL    string
	dir        string // downloaded samples land here
	httpClient *http.Client
}

func NewLibrary(baseURL, dir string) *Library {
	return &Library{
		baseURL:    baseURL,
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the persona's sample recording and returns it as an
// artifact. The sample carries its playback length as the duration.
func (l *Library) Fetch(ctx context.Context, personaID string) (recorder.Artifact, error) {
	p, ok := Get(personaID)
	if !ok {
		return recorder.Artifact{}, fmt.Errorf("%w: %q", recorder.ErrUnknownPersona, personaID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+p.SamplePath, nil)
	if err != nil {
		return recorder.Artifact{}, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return recorder.Artifact{}, fmt.Errorf("downloading persona sample: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return recorder.Artifact{}, fmt.Errorf("downloading persona sample from %s: HTTP %d", l.baseURL+p.SamplePath, resp.StatusCode)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return recorder.Artifact{}, fmt.Errorf("creating samples directory: %w", err)
	}
	path := filepath.Join(l.dir, filepath.Base(p.SamplePath))

	f, err := os.Create(path)
	if err != nil {
		return recorder.Artifact{}, fmt.Errorf("writing persona sample: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return recorder.Artifact{}, fmt.Errorf("writing persona sample: %w", err)
	}

	return recorder.Artifact{
		Path:     path,
		MimeType: "audio/webm",
		Duration: p.PlaybackLength,
	}, nil
}
