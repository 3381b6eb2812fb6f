package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "base_url") {
		t.Errorf("sample missing base_url:\n%s", data)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --overwrite")
	}
}

func TestParseKeyValuesCoercesTypes(t *testing.T) {
	values, err := parseKeyValues([]string{"temperature=0.4", "beta=true", "name=alpha", "legacy=null"})
	if err != nil {
		t.Fatalf("parseKeyValues: %v", err)
	}
	if values["temperature"] != 0.4 {
		t.Errorf("temperature = %v", values["temperature"])
	}
	if values["beta"] != true {
		t.Errorf("beta = %v", values["beta"])
	}
	if values["name"] != "alpha" {
		t.Errorf("name = %v", values["name"])
	}
	if values["legacy"] != nil {
		t.Errorf("legacy = %v", values["legacy"])
	}

	if _, err := parseKeyValues([]string{"no-equals"}); err == nil {
		t.Error("expected error for malformed pair")
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	base := t.TempDir()
	content := "[paths]\nstate_dir = \"" + filepath.Join(base, "state") + "\"\nlog_dir = \"" + filepath.Join(base, "logs") + "\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configPath, "submit", filepath.Join(base, "missing.mp4")})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "open clip file") {
		t.Errorf("error = %v", err)
	}
}
