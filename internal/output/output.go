package output

import (
	"fmt"
	"io"
	"time"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Heading(text string) {
	fmt.Fprintf(f.w, "\n== %s ==\n", text)
}

func (f *Formatter) RecordingStarted() {
	fmt.Fprintf(f.w, "🎙️  Recording ... (press Enter to stop)\n")
}

func (f *Formatter) RecordingTick(elapsed time.Duration) {
	fmt.Fprintf(f.w, "\r⏱️  %s ", FormatClock(elapsed))
}

func (f *Formatter) RecordingStopped(duration time.Duration) {
	fmt.Fprintf(f.w, "\n⏹️  Recording stopped (%s)\n", formatDuration(duration))
}

func (f *Formatter) Uploading() {
	fmt.Fprintf(f.w, "⬆️  Uploading your voice memo ...\n")
}

func (f *Formatter) TooShort(minDuration time.Duration) {
	fmt.Fprintf(f.w, "⚠️  Your recording needs to be longer than %s, please try again.\n", formatDuration(minDuration))
}

func (f *Formatter) UploadFailed(fallbackPath string, errText string) {
	fmt.Fprintf(f.w, "❌ Failed to upload recording.\n")
	if fallbackPath != "" {
		fmt.Fprintf(f.w, "   Your audio is saved at %s - please send it to ai@dumpsheet.com\n", fallbackPath)
	}
	fmt.Fprintf(f.w, "   Please send this error to support@dumpsheet.com: %s\n", errText)
}

func (f *Formatter) UploadSuccess(email string) {
	fmt.Fprintf(f.w, "✅ Congrats - all done here!\n")
	if email != "" {
		fmt.Fprintf(f.w, "   Review email(s) from assistant@dumpsheet.com arriving at %s within a few minutes.\n", email)
	}
}

func (f *Formatter) DemoPlaying(title string) {
	fmt.Fprintf(f.w, "▶️  Now playing: %s\n", title)
}

func (f *Formatter) Transcript(text string) {
	fmt.Fprintf(f.w, "\n%s\n\n", text)
}

func (f *Formatter) RegistrationApology(errText string) {
	fmt.Fprintf(f.w, "❌ Oh no! An error occurred when setting your email: %s\n", errText)
	fmt.Fprintf(f.w, "   Rest assured - we got your recording and our team was notified.\n")
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// FormatClock renders an elapsed time as mm:ss.
func FormatClock(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
