// Package audio captures microphone audio with ffmpeg.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petercsiba/dumpsheet/internal/recorder"
)

var (
	// ErrPermissionDenied means the OS refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means there is no usable capture device or ffmpeg
	// is missing.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

const artifactMimeType = "audio/webm"

// finalizeTimeout bounds how long Stop waits for ffmpeg to flush the
// container after an interrupt before killing it.
const finalizeTimeout = 5 * time.Second

// Microphone records mono Opus-in-WebM from the default input device.
// It implements recorder.Microphone.
type Microphone struct {
	dir string // where finished artifacts land
}

func NewMicrophone(dir string) *Microphone {
	return &Microphone{dir: dir}
}

// CheckFFmpeg verifies ffmpeg is installed.
func (m *Microphone) CheckFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found. Install with: brew install ffmpeg")
	}
	return nil
}

// Start launches an ffmpeg capture process. On failure no session exists and
// the microphone stays released.
func (m *Microphone) Start(ctx context.Context) (recorder.CaptureSession, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", ErrDeviceUnavailable)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recordings directory: %w", err)
	}
	outputPath := filepath.Join(m.dir, uuid.NewString()+".webm")

	cmd := exec.Command("ffmpeg", captureArgs(outputPath)...)

	// Keep ffmpeg stderr for diagnostics; it is also how we classify
	// permission failures.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	session := &captureSession{
		cmd:        cmd,
		outputPath: outputPath,
		stderr:     &stderr,
		done:       make(chan error, 1),
	}
	go func() { session.done <- cmd.Wait() }()

	// ffmpeg exits almost immediately when the device is denied or absent;
	// give it a moment so Start can report that instead of Stop.
	select {
	case err := <-session.done:
		session.exited = true
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(300 * time.Millisecond):
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-session.done
		return nil, ctx.Err()
	}

	return session, nil
}

// captureArgs builds the platform input arguments for a mic-only capture.
func captureArgs(outputPath string) []string {
	var input []string
	switch runtime.GOOS {
	case "darwin":
		input = []string{"-f", "avfoundation", "-i", ":default"}
	default:
		input = []string{"-f", "alsa", "-i", "default"}
	}
	return append(input,
		"-ac", "1",
		"-ar", "48000",
		"-c:a", "libopus",
		"-y",
		outputPath,
	)
}

func classifyStartFailure(waitErr error, stderr string) error {
	if containsAny(stderr, "Operation not permitted", "Permission denied", "not authorized") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, lastLine(stderr))
	}
	if waitErr != nil {
		return fmt.Errorf("%w: ffmpeg: %v: %s", ErrDeviceUnavailable, waitErr, lastLine(stderr))
	}
	return fmt.Errorf("%w: ffmpeg exited before capture began", ErrDeviceUnavailable)
}

type captureSession struct {
	cmd        *exec.Cmd
	outputPath string
	stderr     *bytes.Buffer
	done       chan error
	exited     bool
}

// Stop interrupts ffmpeg so it finalizes the WebM container, waits for it to
// exit, and returns the artifact. The capture process (and with it the
// device) is gone when Stop returns, success or not.
func (s *captureSession) Stop(ctx context.Context) (recorder.Artifact, error) {
	if !s.exited {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}

		select {
		case <-s.done:
		case <-time.After(finalizeTimeout):
			_ = s.cmd.Process.Kill()
			<-s.done
		case <-ctx.Done():
			_ = s.cmd.Process.Kill()
			<-s.done
			return recorder.Artifact{}, ctx.Err()
		}
		s.exited = true
	}

	info, err := os.Stat(s.outputPath)
	if err != nil || info.Size() == 0 {
		return recorder.Artifact{}, fmt.Errorf("no audio captured: %s", lastLine(s.stderr.String()))
	}

	return recorder.Artifact{
		Path:     s.outputPath,
		MimeType: artifactMimeType,
	}, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
