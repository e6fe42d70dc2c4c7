package connectors

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"lukechampine.com/blake3"

	"github.com/petercsiba/dumpsheet/internal/twilio"
)

// CallAPI is the slice of the Twilio REST API the recording webhook needs.
// Both calls are best-effort niceties; the archive works without them.
type CallAPI interface {
	GetCall(ctx context.Context, callSID string) (*twilio.Call, error)
	LookupCaller(ctx context.Context, phoneNumber string) (*twilio.CallerInfo, error)
}

// RecordingHandler archives a finished call recording: download the audio,
// resolve the caller where possible, store the object keyed by call SID, log
// it, and answer with a spoken acknowledgement.
type RecordingHandler struct {
	Calls      CallAPI // nil skips caller resolution
	Store      ObjectStore
	Log        CallLogger
	HTTPClient *http.Client
}

func (h *RecordingHandler) client() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "parsing form", http.StatusBadRequest)
		return
	}

	recordingURL := r.PostFormValue("RecordingUrl")
	if !strings.HasPrefix(recordingURL, "http") {
		// Media callbacks carry the audio under a different key.
		recordingURL = r.PostFormValue("MediaUrl")
	}
	callSID := r.PostFormValue("CallSid")
	if recordingURL == "" || callSID == "" {
		http.Error(w, "missing RecordingUrl or CallSid", http.StatusBadRequest)
		return
	}

	audio, err := h.download(r.Context(), recordingURL)
	if err != nil {
		log.Printf("downloading recording for call %s: %v", callSID, err)
		http.Error(w, "downloading recording", http.StatusBadGateway)
		return
	}

	// From is present on recording events, absent on media ones; the call
	// resource is the fallback.
	phoneNumber := r.PostFormValue("From")
	properName := h.resolveCaller(r.Context(), callSID, &phoneNumber)

	key := callSID + ".wav"
	metadata := map[string]string{
		"callSid":     callSID,
		"phoneNumber": phoneNumber,
		"properName":  properName,
	}
	if err := h.Store.Put(r.Context(), key, "audio/wav", audio, metadata); err != nil {
		log.Printf("storing recording for call %s: %v", callSID, err)
		http.Error(w, "storing recording", http.StatusInternalServerError)
		return
	}

	if h.Log != nil {
		rec := CallRecording{
			CallSID:     callSID,
			PhoneNumber: phoneNumber,
			ProperName:  properName,
			S3Key:       key,
			Blake3Hash:  hashBytes(audio),
			SizeBytes:   int64(len(audio)),
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.Log.Insert(r.Context(), rec); err != nil {
			// The object is already archived; a lost log row is not worth a 500.
			log.Printf("logging recording for call %s: %v", callSID, err)
		}
	}

	say := "Thank you!"
	if properName != "" {
		say = fmt.Sprintf("Thank you %s!", properName)
	}
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, twiml(say))
}

var _ http.Handler = (*RecordingHandler)(nil)

func (h *RecordingHandler) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// resolveCaller fills the phone number from the call resource when the
// webhook did not carry it and looks up the caller's name. All failures
// degrade to what we already have.
func (h *RecordingHandler) resolveCaller(ctx context.Context, callSID string, phoneNumber *string) string {
	if h.Calls == nil {
		return ""
	}

	if call, err := h.Calls.GetCall(ctx, callSID); err != nil {
		log.Printf("fetching call %s: %v", callSID, err)
	} else if call.From != "" {
		*phoneNumber = call.From
	}

	if *phoneNumber == "" {
		return ""
	}

	info, err := h.Calls.LookupCaller(ctx, *phoneNumber)
	if err != nil {
		log.Printf("looking up caller %s: %v", *phoneNumber, err)
		return ""
	}
	return properName(info.CallerName)
}

// properName turns the lookup API's "LAST,FIRST" form into "First Last".
func properName(callerName string) string {
	if callerName == "" {
		return ""
	}
	parts := strings.SplitN(strings.ToLower(callerName), ",", 2)
	last := strings.TrimSpace(parts[0])
	first := ""
	if len(parts) > 1 {
		first = strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(titleCase(first) + " " + titleCase(last))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func hashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}
