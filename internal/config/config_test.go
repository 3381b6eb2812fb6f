package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipnotes/internal/config"
)

func TestLoadDefaultsUseEnvTokenAndExpandPaths(t *testing.T) {
	t.Setenv("CLIPNOTES_API_TOKEN", "env-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "clipnotes")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:8000/api" {
		t.Fatalf("unexpected base url: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.APIToken != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Backend.APIToken)
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Fatalf("unexpected timeout: %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Chat.HistoryLimit != 20 {
		t.Fatalf("unexpected history limit: %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q %q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadParsesFileAndTrimsBaseURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := strings.Join([]string{
		`[backend]`,
		`base_url = "https://clipnotes.example.com/api/"`,
		`api_token = "file-token"`,
		`timeout_seconds = 5`,
		``,
		`[chat]`,
		`history_limit = 3`,
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Backend.BaseURL != "https://clipnotes.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds != 5 {
		t.Fatalf("unexpected timeout: %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Chat.HistoryLimit != 3 {
		t.Fatalf("unexpected history limit: %d", cfg.Chat.HistoryLimit)
	}
	// Unset sections keep defaults.
	if cfg.Chat.CacheMaxTotal != 500 {
		t.Fatalf("unexpected cache cap: %d", cfg.Chat.CacheMaxTotal)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "bad scheme",
			contents: "[backend]\nbase_url = \"ftp://example.com\"\n",
			want:     "http or https",
		},
		{
			name:     "bad log format",
			contents: "[logging]\nformat = \"yaml\"\n",
			want:     "logging.format",
		},
		{
			name:     "bad log level",
			contents: "[logging]\nlevel = \"verbose\"\n",
			want:     "logging.level",
		},
		{
			name:     "cache bounds inverted",
			contents: "[chat]\ncache_max_per_selection = 100\ncache_max_total = 10\n",
			want:     "cache_max_per_selection",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.contents), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Backend.BaseURL != config.Default().Backend.BaseURL {
		t.Fatalf("sample base url diverges from default: %q", cfg.Backend.BaseURL)
	}
}
