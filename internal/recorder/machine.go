// Package recorder implements the voice-memo capture flow as an explicit
// state machine: one active state with payload, transitions as the only
// mutation path, and scheduled auto-transitions that cannot fire into a
// later state.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Phase enumerates the machine states.
type Phase string

const (
	PhaseWelcomePrivateBeta Phase = "welcome_private_beta"
	PhaseWelcome            Phase = "welcome"
	PhaseDemoSelectPersona  Phase = "demo_select_persona"
	PhaseDemoPlayPersona    Phase = "demo_play_persona"
	PhaseLetsRecord         Phase = "lets_record"
	PhaseRecording          Phase = "recording"
	PhaseUploading          Phase = "uploading"
	PhaseRegisterEmail      Phase = "register_email"
	PhaseSuccess            Phase = "success"
	PhaseFailure            Phase = "failure"
	PhaseTooShort           Phase = "too_short"
)

// State is the single active machine state plus its payload.
type State struct {
	Phase     Phase
	Elapsed   time.Duration // PhaseRecording, PhaseTooShort
	PersonaID string        // demo phases
	FromDemo  bool
	Email     string // PhaseSuccess
	Err       error  // PhaseFailure
	// FallbackPath points at the captured artifact after a failed upload so
	// the user can recover it manually.
	FallbackPath string
}

var (
	ErrInvalidTransition = errors.New("invalid recorder transition")
	ErrWrongAccessCode   = errors.New("wrong access code")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrTermsNotAccepted  = errors.New("terms of service not accepted")
	ErrUnknownPersona    = errors.New("unknown persona")
)

// emailPattern mirrors the registration form check: non-empty local part,
// non-empty domain with at least one dot, no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address passes the registration check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// emailOnFile reports whether a stored address counts as registered. The
// length floor matches the shortest real address the backend accepts (a@a.ai).
func emailOnFile(email string) bool {
	return len(email) >= 6
}

// Config holds the flow constants.
type Config struct {
	MinDuration         time.Duration // recordings shorter than this are rejected
	ShortRecordingDelay time.Duration // TooShort auto-recovery delay
	AccessCode          string        // private beta gate code
	PrivateBeta         bool          // start at the access-code gate
	Demo                bool          // start at persona selection
}

const (
	defaultMinDuration         = 10 * time.Second
	defaultShortRecordingDelay = 7 * time.Second
	accessCodeRedirectDelay    = time.Second
)

// Deps are the capabilities the machine drives. Clock, Logf and OnTransition
// are optional.
type Deps struct {
	Mic       Microphone
	Uploader  Uploader
	Registrar Registrar
	Identity  IdentityStore
	Samples   SampleLibrary
	Clock     clockwork.Clock
	Logf      func(format string, args ...any)
	// OnTransition is invoked after every state change with a copy of the
	// new state.
	OnTransition func(State)
}

// Machine owns the recorder lifecycle. Event methods are meant to be called
// from a single goroutine (the UI loop); internal timers are synchronized
// against them.
type Machine struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped on every transition; guards stale timers
	identity  Identity
	session   CaptureSession
	startedAt time.Time
	tickStop  context.CancelFunc
}

// New builds a machine and puts it in its initial state: the demo or
// private-beta entry when requested, otherwise Welcome for first-time
// devices and LetsRecord for returning ones.
func New(deps Deps, cfg Config) *Machine {
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = defaultMinDuration
	}
	if cfg.ShortRecordingDelay <= 0 {
		cfg.ShortRecordingDelay = defaultShortRecordingDelay
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logf == nil {
		deps.Logf = log.Printf
	}

	m := &Machine{cfg: cfg, deps: deps}

	ident, err := deps.Identity.Load()
	if err != nil {
		deps.Logf("loading identity: %v", err)
	}
	m.identity = ident

	switch {
	case cfg.Demo:
		m.state = State{Phase: PhaseDemoSelectPersona}
	case cfg.PrivateBeta:
		m.state = State{Phase: PhaseWelcomePrivateBeta}
	case ident.AccountID == "":
		m.state = State{Phase: PhaseWelcome}
	default:
		m.state = State{Phase: PhaseLetsRecord}
	}
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the current device identity.
func (m *Machine) Identity() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// EnterAccessCode checks the private beta code. A correct code advances to
// Welcome after a short confirmation pause; a wrong one keeps the gate up.
func (m *Machine) EnterAccessCode(code string) error {
	m.mu.Lock()
	if m.state.Phase != PhaseWelcomePrivateBeta {
		m.mu.Unlock()
		return m.transitionErr("enter access code")
	}
	if code != m.cfg.AccessCode {
		m.mu.Unlock()
		return ErrWrongAccessCode
	}
	gen := m.gen
	m.mu.Unlock()

	m.deps.Clock.AfterFunc(accessCodeRedirectDelay, func() {
		m.transitionIf(gen, PhaseWelcomePrivateBeta, State{Phase: PhaseWelcome})
	})
	return nil
}

// ChooseDemo moves from Welcome to the demo persona selection.
func (m *Machine) ChooseDemo() error {
	return m.transitionFrom(PhaseWelcome, "choose demo", State{Phase: PhaseDemoSelectPersona})
}

// ChooseRecord moves from Welcome to the pre-recording screen.
func (m *Machine) ChooseRecord() error {
	return m.transitionFrom(PhaseWelcome, "choose record", State{Phase: PhaseLetsRecord})
}

// SelectPersona picks a demo persona and moves to playback.
func (m *Machine) SelectPersona(personaID string) error {
	return m.transitionFrom(PhaseDemoSelectPersona, "select persona",
		State{Phase: PhaseDemoPlayPersona, PersonaID: personaID, FromDemo: true})
}

// CompleteDemoPlayback treats the finished sample as a captured artifact and
// feeds it through the same upload path as a real recording.
func (m *Machine) CompleteDemoPlayback(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != PhaseDemoPlayPersona {
		m.mu.Unlock()
		return m.transitionErr("complete demo playback")
	}
	personaID := m.state.PersonaID
	m.mu.Unlock()

	artifact, err := m.deps.Samples.Fetch(ctx, personaID)
	if err != nil {
		m.fail(fmt.Errorf("fetching persona sample: %w", err), "")
		return nil
	}
	m.upload(ctx, artifact, true)
	return nil
}

// StartRecording acquires the microphone and enters Recording. A capture
// failure is terminal for the attempt: it is logged, returned, and the
// machine stays in its prior state for a manual retry.
func (m *Machine) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != PhaseLetsRecord {
		m.mu.Unlock()
		return m.transitionErr("start recording")
	}
	m.mu.Unlock()

	session, err := m.deps.Mic.Start(ctx)
	if err != nil {
		m.deps.Logf("failed to start recording: %v", err)
		return fmt.Errorf("starting capture: %w", err)
	}

	m.mu.Lock()
	m.session = session
	m.startedAt = m.deps.Clock.Now()
	m.setStateLocked(State{Phase: PhaseRecording})
	s := m.state
	m.mu.Unlock()

	m.notify(s)
	m.startTicker()
	return nil
}

// StopRecording finalizes the capture, applies the minimum-duration gate
// locally, and on a long-enough recording runs the upload to completion.
func (m *Machine) StopRecording(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != PhaseRecording || m.session == nil {
		m.mu.Unlock()
		return m.transitionErr("stop recording")
	}
	session := m.session
	m.session = nil
	elapsed := m.deps.Clock.Since(m.startedAt)
	m.stopTickerLocked()
	m.mu.Unlock()

	// Stop releases the device regardless of outcome.
	artifact, err := session.Stop(ctx)
	if err != nil {
		m.fail(fmt.Errorf("finalizing recording: %w", err), artifact.Path)
		return nil
	}
	artifact.Duration = elapsed

	if elapsed < m.cfg.MinDuration {
		m.mu.Lock()
		m.setStateLocked(State{Phase: PhaseTooShort, Elapsed: elapsed})
		gen := m.gen
		s := m.state
		m.mu.Unlock()
		m.notify(s)

		m.deps.Clock.AfterFunc(m.cfg.ShortRecordingDelay, func() {
			m.transitionIf(gen, PhaseTooShort, State{Phase: PhaseLetsRecord})
		})
		return nil
	}

	m.upload(ctx, artifact, false)
	return nil
}

// SubmitEmail validates and registers the contact email. Validation and
// ToS failures keep the registration screen up; so does a backend failure,
// since the recording itself is already uploaded.
func (m *Machine) SubmitEmail(ctx context.Context, email string, tosAccepted bool) error {
	m.mu.Lock()
	if m.state.Phase != PhaseRegisterEmail {
		m.mu.Unlock()
		return m.transitionErr("submit email")
	}
	accountID := m.identity.AccountID
	fromDemo := m.state.FromDemo
	m.mu.Unlock()

	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if !tosAccepted {
		return ErrTermsNotAccepted
	}

	if err := m.deps.Registrar.Register(ctx, email, tosAccepted, accountID); err != nil {
		return fmt.Errorf("registering email: %w", err)
	}

	m.mu.Lock()
	m.identity.RegisteredEmail = email
	ident := m.identity
	m.setStateLocked(State{Phase: PhaseSuccess, FromDemo: fromDemo, Email: email})
	s := m.state
	m.mu.Unlock()

	if err := m.deps.Identity.Save(ident); err != nil {
		m.deps.Logf("saving identity: %v", err)
	}
	m.notify(s)
	return nil
}

// RecordAgain re-enters the recording flow from a terminal state.
func (m *Machine) RecordAgain() error {
	m.mu.Lock()
	if m.state.Phase != PhaseSuccess && m.state.Phase != PhaseFailure {
		m.mu.Unlock()
		return m.transitionErr("record again")
	}
	m.setStateLocked(State{Phase: PhaseLetsRecord})
	s := m.state
	m.mu.Unlock()
	m.notify(s)
	return nil
}

// upload fetches a fresh target, refreshes the device identity from the
// response, transfers the artifact under the coordinator's deadline, and
// branches on whether the backend already has an email on file.
func (m *Machine) upload(ctx context.Context, artifact Artifact, fromDemo bool) {
	m.mu.Lock()
	m.setStateLocked(State{Phase: PhaseUploading, FromDemo: fromDemo})
	s := m.state
	accountID := m.identity.AccountID
	m.mu.Unlock()
	m.notify(s)

	target, err := m.deps.Uploader.FetchUploadTarget(ctx, accountID, artifact)
	if err != nil {
		m.fail(fmt.Errorf("fetching upload target: %w", err), artifact.Path)
		return
	}
	m.refreshIdentity(target)

	if err := m.deps.Uploader.Transfer(ctx, artifact, target); err != nil {
		m.fail(fmt.Errorf("uploading recording: %w", err), artifact.Path)
		return
	}

	m.mu.Lock()
	if emailOnFile(target.Email) {
		m.setStateLocked(State{Phase: PhaseSuccess, FromDemo: fromDemo, Email: target.Email})
	} else {
		m.setStateLocked(State{Phase: PhaseRegisterEmail, FromDemo: fromDemo})
	}
	s = m.state
	m.mu.Unlock()
	m.notify(s)
}

// refreshIdentity syncs the persisted identity with what the backend
// returned for this upload. The backend wins on conflict.
func (m *Machine) refreshIdentity(target UploadTarget) {
	m.mu.Lock()
	if target.Email == "" && emailOnFile(m.identity.RegisteredEmail) {
		// A previous registration POST must have been lost; ask again.
		m.deps.Logf("backend has no email on file while %q is registered locally; will ask for it",
			m.identity.RegisteredEmail)
	}
	m.identity = Identity{AccountID: target.AccountID, RegisteredEmail: target.Email}
	ident := m.identity
	m.mu.Unlock()

	if err := m.deps.Identity.Save(ident); err != nil {
		m.deps.Logf("saving identity: %v", err)
	}
}

func (m *Machine) fail(err error, fallbackPath string) {
	m.deps.Logf("%v", err)
	m.mu.Lock()
	m.setStateLocked(State{Phase: PhaseFailure, Err: err, FallbackPath: fallbackPath})
	s := m.state
	m.mu.Unlock()
	m.notify(s)
}

// setStateLocked is the only state mutation point. Bumping gen invalidates
// every timer scheduled before this transition.
func (m *Machine) setStateLocked(s State) {
	m.gen++
	m.state = s
}

// transitionIf applies the transition only when no other transition happened
// since gen was captured and the machine is still in from. Stale timers
// silently do nothing.
func (m *Machine) transitionIf(gen uint64, from Phase, to State) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != from {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(to)
	s := m.state
	m.mu.Unlock()
	m.notify(s)
}

func (m *Machine) transitionFrom(from Phase, event string, to State) error {
	m.mu.Lock()
	if m.state.Phase != from {
		m.mu.Unlock()
		return m.transitionErr(event)
	}
	m.setStateLocked(to)
	s := m.state
	m.mu.Unlock()
	m.notify(s)
	return nil
}

func (m *Machine) transitionErr(event string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, event, m.State().Phase)
}

func (m *Machine) notify(s State) {
	if m.deps.OnTransition != nil {
		m.deps.OnTransition(s)
	}
}

// startTicker recomputes the elapsed time from the wall clock every second
// while Recording; this stays correct across UI stalls. The ticker dies with
// the Recording state.
func (m *Machine) startTicker() {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := m.deps.Clock.NewTicker(time.Second)

	m.mu.Lock()
	m.tickStop = cancel
	m.mu.Unlock()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				m.mu.Lock()
				if m.state.Phase != PhaseRecording {
					m.mu.Unlock()
					return
				}
				m.state.Elapsed = m.deps.Clock.Since(m.startedAt)
				s := m.state
				m.mu.Unlock()
				m.notify(s)
			}
		}
	}()
}

func (m *Machine) stopTickerLocked() {
	if m.tickStop != nil {
		m.tickStop()
		m.tickStop = nil
	}
}
