package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// allEnvVars lists every variable Load reads; each test starts from a clean slate.
var allEnvVars = []string{
	"BECMI_CONFIG", "BECMI_DATABASE_URL", "BECMI_HTTP_ADDR", "BECMI_NATS_URL",
	"BECMI_LOG_FORMAT", "BECMI_LOG_LEVEL",
	"BECMI_POLL_MAX_TIMEOUT", "BECMI_POLL_DEFAULT_TIMEOUT", "BECMI_POLL_TICK", "BECMI_POLL_BATCH",
	"BECMI_ONLINE_WINDOW", "BECMI_PRESENCE_SWEEP", "BECMI_SESSION_TTL",
	"BECMI_ARCHIVE_INTERVAL", "BECMI_ARCHIVE_S3_BUCKET", "BECMI_ARCHIVE_S3_PREFIX",
	"BECMI_ARCHIVE_S3_REGION", "BECMI_ARCHIVE_S3_ENDPOINT",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "becmi.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:         "DefaultAddresses",
			env:          map[string]string{"BECMI_DATABASE_URL": "postgres://localhost/becmi"},
			wantHTTPAddr: ":8080",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"BECMI_DATABASE_URL": "postgres://db:5432/becmi",
				"BECMI_HTTP_ADDR":    ":3000",
				"BECMI_NATS_URL":     "nats://localhost:4222",
			},
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name: "InvalidDuration",
			env: map[string]string{
				"BECMI_DATABASE_URL": "postgres://localhost/becmi",
				"BECMI_POLL_TICK":    "soon",
			},
			wantErr: true,
		},
		{
			name: "InvalidBatch",
			env: map[string]string{
				"BECMI_DATABASE_URL": "postgres://localhost/becmi",
				"BECMI_POLL_BATCH":   "fifty",
			},
			wantErr: true,
		},
		{
			name: "DefaultAboveMax",
			env: map[string]string{
				"BECMI_DATABASE_URL":         "postgres://localhost/becmi",
				"BECMI_POLL_DEFAULT_TIMEOUT": "45s",
			},
			wantErr: true,
		},
		{
			name: "BadLogFormat",
			env: map[string]string{
				"BECMI_DATABASE_URL": "postgres://localhost/becmi",
				"BECMI_LOG_FORMAT":   "xml",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["BECMI_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["BECMI_DATABASE_URL"])
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadPollDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("BECMI_DATABASE_URL", "postgres://localhost/becmi")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PollMaxTimeout != 30*time.Second {
		t.Errorf("PollMaxTimeout = %v, want 30s", cfg.PollMaxTimeout)
	}
	if cfg.PollDefaultTimeout != 25*time.Second {
		t.Errorf("PollDefaultTimeout = %v, want 25s", cfg.PollDefaultTimeout)
	}
	if cfg.PollTick != time.Second {
		t.Errorf("PollTick = %v, want 1s", cfg.PollTick)
	}
	if cfg.PollBatch != 50 {
		t.Errorf("PollBatch = %d, want 50", cfg.PollBatch)
	}
	if cfg.OnlineWindow != 30*time.Second {
		t.Errorf("OnlineWindow = %v, want 30s", cfg.OnlineWindow)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.ArchiveEnabled() {
		t.Error("archive should be disabled by default")
	}
}

func TestLoadArchiveCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("BECMI_DATABASE_URL", "postgres://localhost/becmi")
	t.Setenv("BECMI_ARCHIVE_INTERVAL", "10m")
	t.Setenv("BECMI_ARCHIVE_S3_BUCKET", "my-bucket")
	t.Setenv("BECMI_ARCHIVE_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("BECMI_ARCHIVE_S3_REGION", "eu-west-1")
	t.Setenv("BECMI_ARCHIVE_S3_PREFIX", "campaigns/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArchiveInterval != 10*time.Minute {
		t.Errorf("ArchiveInterval = %v, want 10m", cfg.ArchiveInterval)
	}
	if cfg.ArchiveS3Bucket != "my-bucket" {
		t.Errorf("ArchiveS3Bucket = %q", cfg.ArchiveS3Bucket)
	}
	if cfg.ArchiveS3Endpoint != "http://minio:9000" {
		t.Errorf("ArchiveS3Endpoint = %q", cfg.ArchiveS3Endpoint)
	}
	if cfg.ArchiveS3Region != "eu-west-1" {
		t.Errorf("ArchiveS3Region = %q", cfg.ArchiveS3Region)
	}
	if cfg.ArchiveS3Prefix != "campaigns/" {
		t.Errorf("ArchiveS3Prefix = %q", cfg.ArchiveS3Prefix)
	}
	if !cfg.ArchiveEnabled() {
		t.Error("archive should be enabled")
	}
}

func TestLoadFile(t *testing.T) {
	clearAllEnv(t)
	path := writeConfigFile(t, `
database_url = "postgres://file/becmi"
http_addr = ":9999"
poll_max_timeout = "20s"
poll_default_timeout = "15s"
poll_batch = 25
`)
	t.Setenv("BECMI_CONFIG", path)
	t.Setenv("BECMI_HTTP_ADDR", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/becmi" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q, want env override :7000", cfg.HTTPAddr)
	}
	if cfg.PollMaxTimeout != 20*time.Second || cfg.PollDefaultTimeout != 15*time.Second {
		t.Errorf("poll timeouts = %v/%v", cfg.PollMaxTimeout, cfg.PollDefaultTimeout)
	}
	if cfg.PollBatch != 25 {
		t.Errorf("PollBatch = %d, want 25", cfg.PollBatch)
	}
	if cfg.PollTick != time.Second {
		t.Errorf("PollTick = %v, want default 1s", cfg.PollTick)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("BECMI_CONFIG", writeConfigFile(t, `
database_url = "postgres://file/becmi"
pol_tick = "2s"
`))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("BECMI_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
