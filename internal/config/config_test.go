package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIHost, "")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIHost != defaultAPIHost {
		t.Fatalf("APIHost = %q, want %q", cfg.APIHost, defaultAPIHost)
	}
	if cfg.PageSize != 10 || cfg.CacheSize != 2048 || cfg.FetchConcurrency != 8 || cfg.ShardSize != 10 {
		t.Fatalf("sizes = %+v, want defaults", cfg)
	}
	if cfg.RangeSource != RangeSourceQuery {
		t.Fatalf("RangeSource = %q, want %q", cfg.RangeSource, RangeSourceQuery)
	}
	if cfg.MetaPoll != 30*time.Second {
		t.Fatalf("MetaPoll = %v, want 30s", cfg.MetaPoll)
	}
	want := filepath.Join(home, ".local", "state", "beaconscope", "beaconscope.log")
	if cfg.LogFile != want {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, want)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvAPIHost, "")

	path := writeConfig(t, `
api_host = "  http://10.0.0.5:9999  "
page_size = 25
cache_size = 64
fetch_concurrency = 2
range_source = " Shards "
shard_size = 50
log_file = "  ~/logs/bs.log  "
meta_poll_seconds = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIHost != "http://10.0.0.5:9999" {
		t.Fatalf("APIHost = %q, want %q", cfg.APIHost, "http://10.0.0.5:9999")
	}
	if cfg.PageSize != 25 || cfg.CacheSize != 64 || cfg.FetchConcurrency != 2 || cfg.ShardSize != 50 {
		t.Fatalf("sizes = %+v", cfg)
	}
	if cfg.RangeSource != RangeSourceShards {
		t.Fatalf("RangeSource = %q, want %q", cfg.RangeSource, RangeSourceShards)
	}
	if cfg.MetaPoll != 5*time.Second {
		t.Fatalf("MetaPoll = %v, want 5s", cfg.MetaPoll)
	}
	if !strings.HasPrefix(cfg.LogFile, home) || !strings.HasSuffix(cfg.LogFile, "bs.log") {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAPIHost, "")

	cfg, err := Load(writeConfig(t, `
api_host = "   "
page_size = 0
range_source = ""
log_file = ""
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	def := Default()
	if cfg != def {
		t.Fatalf("cfg = %+v, want %+v", cfg, def)
	}
}

func TestLoad_EnvOverridesHost(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvAPIHost, "http://indexer.local:8080")

	cfg, err := Load(writeConfig(t, `api_host = "http://ignored:1"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIHost != "http://indexer.local:8080" {
		t.Fatalf("APIHost = %q, want env value", cfg.APIHost)
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid toml", `api_host = [`, "parse config"},
		{"unknown range source", `range_source = "torrent"`, "unknown range_source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load returned nil error, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
