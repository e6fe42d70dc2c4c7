package recorder

import (
	"context"
	"time"
)

// Artifact is a finalized audio recording ready for transfer. The file at
// Path stays on disk after a failed upload so the user can recover it.
type Artifact struct {
	Path     string
	MimeType string
	Duration time.Duration
}

// UploadTarget is a backend-issued, single-use destination for one artifact.
// Email is empty when the backend has no address on file for the account.
type UploadTarget struct {
	PresignedURL string
	AccountID    string
	Email        string
}

// Identity is the per-device account state, persisted across sessions.
type Identity struct {
	AccountID       string `json:"account_id"`
	RegisteredEmail string `json:"registered_email"`
}

// CaptureSession is a live microphone capture. Stop always releases the
// device, whether or not finalization succeeds.
type CaptureSession interface {
	Stop(ctx context.Context) (Artifact, error)
}

// Microphone acquires exclusive capture sessions.
type Microphone interface {
	Start(ctx context.Context) (CaptureSession, error)
}

// Uploader obtains upload targets and transfers artifacts to them.
type Uploader interface {
	FetchUploadTarget(ctx context.Context, accountID string, artifact Artifact) (UploadTarget, error)
	Transfer(ctx context.Context, artifact Artifact, target UploadTarget) error
}

// Registrar submits the post-upload email registration.
type Registrar interface {
	Register(ctx context.Context, email string, tosAccepted bool, accountID string) error
}

// IdentityStore persists the device identity.
type IdentityStore interface {
	Load() (Identity, error)
	Save(Identity) error
}

// SampleLibrary fetches demo persona sample recordings.
type SampleLibrary interface {
	Fetch(ctx context.Context, personaID string) (Artifact, error)
}
