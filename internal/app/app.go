package app

import (
	"context"
	"fmt"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/petercsiba/dumpsheet/config"
	"github.com/petercsiba/dumpsheet/internal/account"
	"github.com/petercsiba/dumpsheet/internal/audio"
	"github.com/petercsiba/dumpsheet/internal/backend"
	"github.com/petercsiba/dumpsheet/internal/connectors"
	"github.com/petercsiba/dumpsheet/internal/persona"
	"github.com/petercsiba/dumpsheet/internal/recorder"
	"github.com/petercsiba/dumpsheet/internal/twilio"
)

// App wires the concrete dependencies behind the recorder flow.
type App struct {
	Config   *config.Config
	Backend  *backend.Client
	Identity *account.Store
	Mic      *audio.Microphone
	Samples  *persona.Library
}

func New(cfg *config.Config) (*App, error) {
	client, err := backend.New(backend.Config{
		BaseURL:       cfg.APIBaseURL,
		UploadTimeout: cfg.UploadTimeout(),
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Backend:  client,
		Identity: account.NewStore(cfg.StateDir),
		Mic:      audio.NewMicrophone(filepath.Join(cfg.StateDir, "recordings")),
		Samples:  persona.NewLibrary(cfg.AssetBaseURL, filepath.Join(cfg.StateDir, "samples")),
	}, nil
}

// MachineOptions select the entry point of a recorder flow run.
type MachineOptions struct {
	PrivateBeta  bool
	Demo         bool
	OnTransition func(recorder.State)
}

// NewRecorderMachine builds a fresh state machine for one flow run.
func (a *App) NewRecorderMachine(opts MachineOptions) *recorder.Machine {
	return recorder.New(
		recorder.Deps{
			Mic:          a.Mic,
			Uploader:     a.Backend,
			Registrar:    a.Backend,
			Identity:     a.Identity,
			Samples:      a.Samples,
			OnTransition: opts.OnTransition,
		},
		recorder.Config{
			MinDuration:         a.Config.MinDuration(),
			ShortRecordingDelay: a.Config.ShortRecordingDelay(),
			AccessCode:          a.Config.AccessCode,
			PrivateBeta:         opts.PrivateBeta,
			Demo:                opts.Demo,
		},
	)
}

// NewConnectorServer assembles the webhook server: SMS forwarding plus the
// call-recording archive when an S3 bucket is configured.
func (a *App) NewConnectorServer(ctx context.Context) (*connectors.Server, error) {
	cfg := a.Config

	var sms *connectors.SMSHandler
	if cfg.ForwardURL != "" {
		sms = &connectors.SMSHandler{
			ForwardURL: cfg.ForwardURL,
			APIKey:     cfg.ForwardAPIKey,
		}
	}

	var rec *connectors.RecordingHandler
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}

		db, err := connectors.OpenDB(cfg.ConnectorDB)
		if err != nil {
			return nil, err
		}

		rec = &connectors.RecordingHandler{
			Store: connectors.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket),
			Log:   connectors.NewCallLog(db),
		}

		// Caller resolution is optional; without credentials the webhook
		// still archives recordings.
		if tw, err := twilio.New(&twilio.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			BaseURL:    cfg.TwilioBaseURL,
		}); err == nil {
			rec.Calls = tw
		}
	}

	if sms == nil && rec == nil {
		return nil, fmt.Errorf("no connectors configured: set forward_url and/or s3_bucket")
	}

	return connectors.NewServer(cfg.ListenAddr, sms, rec), nil
}
