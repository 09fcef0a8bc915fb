package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("QUOTESYNC_DATA_DIR", filepath.Join(dir, "data"))
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Remote.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q", cfg.Remote.Endpoint)
	}
	if cfg.Remote.FetchLimit != 10 || cfg.Remote.PushConcurrency != 4 {
		t.Errorf("unexpected remote defaults: %+v", cfg.Remote)
	}
	if cfg.Remote.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.Remote.RequestTimeout)
	}
	if cfg.Sync.Interval != 30*time.Second || cfg.Sync.SettleDelay != 3*time.Second {
		t.Errorf("unexpected sync defaults: %+v", cfg.Sync)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Port = %d", cfg.Dashboard.Port)
	}
	if cfg.File != "" {
		t.Errorf("no config file expected, got %q", cfg.File)
	}
	if cfg.DBPath() != filepath.Join(dir, "data", DBFile) {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := isolate(t)
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}

	yaml := strings.Join([]string{
		"remote:",
		"  fetch_limit: 25",
		"  request_timeout: 2s",
		"sync:",
		"  interval: 25s",
		"dashboard:",
		"  port: 9000",
		"inbox:",
		"  dir: inbox",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dataDir, "quotesync.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("QUOTESYNC_REMOTE_FETCH_LIMIT", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	if err := flags.Parse([]string{"--port", "7000"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	v := New()
	if err := BindFlags(v, flags, map[string]string{"dashboard.port": "port"}); err != nil {
		t.Fatalf("BindFlags failed: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.File == "" {
		t.Error("expected config file to be read")
	}
	if cfg.Remote.FetchLimit != 5 {
		t.Errorf("env should override file: FetchLimit = %d", cfg.Remote.FetchLimit)
	}
	if cfg.Remote.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %s", cfg.Remote.RequestTimeout)
	}
	if cfg.Sync.Interval != 25*time.Second {
		t.Errorf("Interval = %s", cfg.Sync.Interval)
	}
	if cfg.Dashboard.Port != 7000 {
		t.Errorf("flag should override file: Port = %d", cfg.Dashboard.Port)
	}
	if cfg.Inbox.Dir != filepath.Join(dataDir, "inbox") {
		t.Errorf("relative inbox dir should resolve under data dir, got %q", cfg.Inbox.Dir)
	}
}

func TestBindFlags_UnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(New(), flags, map[string]string{"dashboard.port": "missing"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad endpoint", map[string]string{"QUOTESYNC_REMOTE_ENDPOINT": "ftp://example.com"}},
		{"zero limit", map[string]string{"QUOTESYNC_REMOTE_FETCH_LIMIT": "0"}},
		{"short interval", map[string]string{"QUOTESYNC_SYNC_INTERVAL": "10ms"}},
		{"port range", map[string]string{"QUOTESYNC_DASHBOARD_PORT": "70000"}},
		{"zero concurrency", map[string]string{"QUOTESYNC_REMOTE_PUSH_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			if _, err := Load(New()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "quotesync.yaml"), []byte("remote: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(New()); err == nil {
		t.Error("expected error for malformed config file")
	}
}
