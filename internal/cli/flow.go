package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petercsiba/dumpsheet/internal/app"
	"github.com/petercsiba/dumpsheet/internal/output"
	"github.com/petercsiba/dumpsheet/internal/persona"
	"github.com/petercsiba/dumpsheet/internal/recorder"
)

// runFlow drives a recorder machine from the terminal: it renders the
// current state, feeds user input in as events, and loops until a terminal
// state is declined.
func runFlow(deps *Dependencies, opts app.MachineOptions) error {
	f := output.NewFormatter(os.Stdout)
	in := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	opts.OnTransition = func(s recorder.State) {
		switch s.Phase {
		case recorder.PhaseRecording:
			if s.Elapsed > 0 {
				f.RecordingTick(s.Elapsed)
			}
		case recorder.PhaseUploading:
			f.Uploading()
		}
	}
	m := deps.App.NewRecorderMachine(opts)

	for {
		s := m.State()
		switch s.Phase {
		case recorder.PhaseWelcomePrivateBeta:
			f.Heading("Welcome to Dumpsheet!")
			f.Info("We are in private beta - your feedback counts.")
			code := prompt(in, "Please provide your 4 digit access code: ")
			if err := m.EnterAccessCode(code); err != nil {
				f.Error("Wrong code, please contact support@dumpsheet.com")
				continue
			}
			f.Success("Correct! (Redirecting ...)")
			waitLeave(m, recorder.PhaseWelcomePrivateBeta)

		case recorder.PhaseWelcome:
			f.Heading("Welcome!")
			f.Info("What do you want to do?")
			fmt.Println("  1) Show me how it works!")
			fmt.Println("  2) Lets record a voice memo")
			if prompt(in, "> ") == "1" {
				_ = m.ChooseDemo()
			} else {
				_ = m.ChooseRecord()
			}

		case recorder.PhaseDemoSelectPersona:
			f.Heading("Demo: pick a narrator")
			catalog := persona.Catalog()
			for i, p := range catalog {
				fmt.Printf("  %d) %s\n", i+1, p.DisplayName)
			}
			choice := prompt(in, "> ")
			selected := catalog[0]
			for i, p := range catalog {
				if choice == fmt.Sprint(i+1) || strings.EqualFold(choice, p.ID) {
					selected = p
				}
			}
			_ = m.SelectPersona(selected.ID)

		case recorder.PhaseDemoPlayPersona:
			p, _ := persona.Get(s.PersonaID)
			f.DemoPlaying(p.RecordingTitle)
			f.Transcript(p.Transcript)
			if err := m.CompleteDemoPlayback(ctx); err != nil {
				return err
			}

		case recorder.PhaseLetsRecord:
			f.Heading("Tell me about your meeting")
			f.Info("Mention people, facts or any action items.")
			prompt(in, "Press Enter to start recording ...")
			if err := m.StartRecording(ctx); err != nil {
				f.Error("Could not start recording: " + err.Error())
				if !promptYesNo(in, "Try again? [y/N] ") {
					return nil
				}
			}

		case recorder.PhaseRecording:
			f.RecordingStarted()
			in.Scan()
			if err := m.StopRecording(ctx); err != nil {
				return err
			}

		case recorder.PhaseUploading:
			// Upload completes inside StopRecording/CompleteDemoPlayback;
			// seeing this here means a timer-driven rerender, just wait.
			waitLeave(m, recorder.PhaseUploading)

		case recorder.PhaseTooShort:
			f.TooShort(deps.Config.MinDuration())
			f.Info("(Returning to the recording screen in a bit)")
			waitLeave(m, recorder.PhaseTooShort)

		case recorder.PhaseRegisterEmail:
			f.Heading("Almost there!")
			f.Info("I will be processing your request in the next few minutes.")
			if done := registerEmail(ctx, m, f, in); !done {
				return nil
			}

		case recorder.PhaseSuccess:
			f.UploadSuccess(s.Email)
			if s.FromDemo {
				f.Info("Now try for yourself!")
			}
			if !promptYesNo(in, "Record another memo? [y/N] ") {
				return nil
			}
			_ = m.RecordAgain()

		case recorder.PhaseFailure:
			f.UploadFailed(fallbackFile(s.FallbackPath), errText(s.Err))
			if !promptYesNo(in, "Record another memo? [y/N] ") {
				return nil
			}
			_ = m.RecordAgain()
		}
	}
}

// registerEmail collects the address and ToS acceptance. Submission stays
// blocked until the email validates and the terms are accepted. Returns
// false when the user gives up; the recording is already uploaded either way.
func registerEmail(ctx context.Context, m *recorder.Machine, f *output.Formatter, in *bufio.Scanner) bool {
	for {
		email := prompt(in, "Please enter your email to receive results of my work: ")
		if !recorder.ValidEmail(email) {
			f.Error("Invalid email address")
			continue
		}
		if !promptYesNo(in, "Agree to our terms of service (https://www.dumpsheet.com/legal/terms-of-service)? [y/N] ") {
			f.Warning("You need to accept the terms of service to submit.")
			continue
		}

		err := m.SubmitEmail(ctx, email, true)
		if err == nil {
			return true
		}
		f.RegistrationApology(err.Error())
		if !promptYesNo(in, "Try again? [y/N] ") {
			f.Info("Your recording is uploaded; we will ask for your email next time.")
			return false
		}
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func promptYesNo(in *bufio.Scanner, label string) bool {
	answer := strings.ToLower(prompt(in, label))
	return answer == "y" || answer == "yes"
}

// waitLeave parks until a scheduled transition moves the machine out of
// phase.
func waitLeave(m *recorder.Machine, phase recorder.Phase) {
	for m.State().Phase == phase {
		time.Sleep(50 * time.Millisecond)
	}
}

// fallbackFile renames a stranded artifact to a recognizable name so the
// user can find it and send it in manually.
func fallbackFile(path string) string {
	if path == "" {
		return ""
	}
	named := filepath.Join(filepath.Dir(path),
		fmt.Sprintf("dumpsheet-audio-recording-%d.webm", time.Now().Unix()))
	if err := os.Rename(path, named); err != nil {
		return path
	}
	return named
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
