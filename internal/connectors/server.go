// Package connectors serves the webhook endpoints that replaced the Twilio
// serverless functions: inbound SMS forwarding and call-recording archival.
package connectors

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"
)

// Server hosts the connector webhooks.
type Server struct {
	addr string
	mux  *http.ServeMux
}

// NewServer mounts the handlers. Either handler may be nil to leave its
// route unmounted (e.g. no S3 bucket configured).
func NewServer(addr string, sms *SMSHandler, recording *RecordingHandler) *Server {
	mux := http.NewServeMux()
	if sms != nil {
		mux.Handle("/webhooks/twilio/sms", sms)
	}
	if recording != nil {
		mux.Handle("/webhooks/twilio/recording", recording)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Server{addr: addr, mux: mux}
}

// Handler exposes the mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutting down connector server: %v", err)
		return err
	}
	return nil
}
