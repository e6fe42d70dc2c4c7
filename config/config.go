package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults for the recording flow. The upload deadline and minimum duration
// must stay in sync with what the backend enforces.
const (
	DefaultMinDurationSeconds    = 10
	DefaultUploadTimeoutMs       = 30000
	DefaultShortRecordingDelayMs = 7000
	DefaultAccessCode            = "1876"
	DefaultListenAddr            = ":8121"
)

type Config struct {
	APIBaseURL   string // backend API, e.g. https://api.dumpsheet.com
	AssetBaseURL string // static assets (demo persona samples)

	MinDurationSeconds    int
	UploadTimeoutMs       int
	ShortRecordingDelayMs int
	AccessCode            string

	StateDir string // identity file, recordings, connector db

	// Connector webhook server settings.
	ListenAddr    string
	ForwardURL    string // where inbound SMS get forwarded
	ForwardAPIKey string
	S3Bucket      string
	S3Region      string
	ConnectorDB   string

	// Twilio credentials; the twilio package also falls back to
	// TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN. An empty base URL means the
	// production API.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioBaseURL    string
}

type fileConfig struct {
	APIBaseURL            string `toml:"api_base_url"`
	AssetBaseURL          string `toml:"asset_base_url"`
	MinDurationSeconds    int    `toml:"min_duration_seconds"`
	UploadTimeoutMs       int    `toml:"upload_timeout_ms"`
	ShortRecordingDelayMs int    `toml:"short_recording_delay_ms"`
	AccessCode            string `toml:"access_code"`
	StateDir              string `toml:"state_dir"`
	ListenAddr            string `toml:"listen_addr"`
	ForwardURL            string `toml:"forward_url"`
	ForwardAPIKey         string `toml:"forward_api_key"`
	S3Bucket              string `toml:"s3_bucket"`
	S3Region              string `toml:"s3_region"`
	ConnectorDB           string `toml:"connector_db"`
	TwilioAccountSID      string `toml:"twilio_account_sid"`
	TwilioAuthToken       string `toml:"twilio_auth_token"`
	TwilioBaseURL         string `toml:"twilio_base_url"`
}

func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:            "https://api.dumpsheet.com",
		AssetBaseURL:          "https://app.dumpsheet.com",
		MinDurationSeconds:    DefaultMinDurationSeconds,
		UploadTimeoutMs:       DefaultUploadTimeoutMs,
		ShortRecordingDelayMs: DefaultShortRecordingDelayMs,
		AccessCode:            DefaultAccessCode,
		StateDir:              defaultStateDir(),
		ListenAddr:            DefaultListenAddr,
	}

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err == nil {
			applyFileConfig(cfg, &fc)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.ConnectorDB == "" {
		cfg.ConnectorDB = filepath.Join(cfg.StateDir, "connectors.db")
	}

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.APIBaseURL != "" {
		cfg.APIBaseURL = strings.TrimRight(fc.APIBaseURL, "/")
	}
	if fc.AssetBaseURL != "" {
		cfg.AssetBaseURL = strings.TrimRight(fc.AssetBaseURL, "/")
	}
	if fc.MinDurationSeconds > 0 {
		cfg.MinDurationSeconds = fc.MinDurationSeconds
	}
	if fc.UploadTimeoutMs > 0 {
		cfg.UploadTimeoutMs = fc.UploadTimeoutMs
	}
	if fc.ShortRecordingDelayMs > 0 {
		cfg.ShortRecordingDelayMs = fc.ShortRecordingDelayMs
	}
	if fc.AccessCode != "" {
		cfg.AccessCode = fc.AccessCode
	}
	if fc.StateDir != "" {
		cfg.StateDir = expandTilde(fc.StateDir)
	}
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	cfg.ForwardURL = fc.ForwardURL
	cfg.ForwardAPIKey = fc.ForwardAPIKey
	cfg.S3Bucket = fc.S3Bucket
	cfg.S3Region = fc.S3Region
	if fc.ConnectorDB != "" {
		cfg.ConnectorDB = expandTilde(fc.ConnectorDB)
	}
	cfg.TwilioAccountSID = fc.TwilioAccountSID
	cfg.TwilioAuthToken = fc.TwilioAuthToken
	if fc.TwilioBaseURL != "" {
		cfg.TwilioBaseURL = strings.TrimRight(fc.TwilioBaseURL, "/")
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DUMPSHEET_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("DUMPSHEET_ASSET_BASE_URL"); v != "" {
		cfg.AssetBaseURL = strings.TrimRight(v, "/")
	}
	if v := envInt("DUMPSHEET_MIN_DURATION_SECONDS"); v > 0 {
		cfg.MinDurationSeconds = v
	}
	if v := envInt("DUMPSHEET_UPLOAD_TIMEOUT_MS"); v > 0 {
		cfg.UploadTimeoutMs = v
	}
	if v := envInt("DUMPSHEET_SHORT_RECORDING_DELAY_MS"); v > 0 {
		cfg.ShortRecordingDelayMs = v
	}
	if v := os.Getenv("DUMPSHEET_ACCESS_CODE"); v != "" {
		cfg.AccessCode = v
	}
	if v := os.Getenv("DUMPSHEET_STATE_DIR"); v != "" {
		cfg.StateDir = expandTilde(v)
	}
	if v := os.Getenv("DUMPSHEET_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DUMPSHEET_FORWARD_URL"); v != "" {
		cfg.ForwardURL = v
	}
	if v := os.Getenv("DUMPSHEET_FORWARD_API_KEY"); v != "" {
		cfg.ForwardAPIKey = v
	}
	if v := os.Getenv("DUMPSHEET_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("DUMPSHEET_S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("DUMPSHEET_CONNECTOR_DB"); v != "" {
		cfg.ConnectorDB = expandTilde(v)
	}
	if v := os.Getenv("DUMPSHEET_TWILIO_BASE_URL"); v != "" {
		cfg.TwilioBaseURL = strings.TrimRight(v, "/")
	}
}

// MinDuration is the shortest accepted recording.
func (c *Config) MinDuration() time.Duration {
	return time.Duration(c.MinDurationSeconds) * time.Second
}

// UploadTimeout is the artifact transfer deadline.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutMs) * time.Millisecond
}

// ShortRecordingDelay is how long the too-short screen stays up before the
// flow auto-recovers.
func (c *Config) ShortRecordingDelay() time.Duration {
	return time.Duration(c.ShortRecordingDelayMs) * time.Millisecond
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "dumpsheet")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "dumpsheet")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".dumpsheet")
	}
	return ".dumpsheet"
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
