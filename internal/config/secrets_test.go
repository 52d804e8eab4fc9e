package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupSecret_EnvOnly(t *testing.T) {
	const envName = "TEST_PANEL_SECRET_ENV_ONLY"
	t.Setenv(envName, "env-value")

	value, source, err := LookupSecret(envName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "env-value" {
		t.Errorf("got %q, want %q", value, "env-value")
	}
	if source != SourceEnv {
		t.Errorf("got source %q, want %q", source, SourceEnv)
	}
}

func TestLookupSecret_FileWinsOverEnv(t *testing.T) {
	const envName = "TEST_PANEL_SECRET_FILE_WINS"
	t.Setenv(envName, "env-value")

	secretFile := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(secretFile, []byte("  file-value \n\n"), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	t.Setenv(envName+"_FILE", secretFile)

	value, source, err := LookupSecret(envName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "file-value" {
		t.Errorf("got %q, want %q (file should win and be trimmed)", value, "file-value")
	}
	if source != SourceFile {
		t.Errorf("got source %q, want %q", source, SourceFile)
	}
}

func TestLookupSecret_NeitherSet(t *testing.T) {
	const envName = "TEST_PANEL_SECRET_NEITHER_SET"
	os.Unsetenv(envName)
	os.Unsetenv(envName + "_FILE")

	value, source, err := LookupSecret(envName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "" || source != SourceNone {
		t.Errorf("got (%q, %q), want empty value from %q", value, source, SourceNone)
	}
}

func TestResolveSecret_FileNotFound(t *testing.T) {
	const envName = "TEST_PANEL_SECRET_FILE_NOT_FOUND"
	t.Setenv(envName+"_FILE", "/nonexistent/path/to/secret")

	if _, err := ResolveSecret(envName); err == nil {
		t.Error("expected error when file does not exist")
	}
}
