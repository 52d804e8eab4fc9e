package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearPanelEnv(t *testing.T) {
	for _, k := range []string{"PANEL_UI_PORT", "PANEL_TLS_CERT", "PANEL_TLS_KEY", "PANEL_ALERT_WEBHOOK_URL", "PANEL_MQTT_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Full(t *testing.T) {
	clearPanelEnv(t)
	path := writeConfig(t, `
version: 1
panel:
  id: front-desk
  name: Front desk
network:
  ui_port: 9090
check:
  step: 5
  step_delay: 10ms
  settle_delay: 50ms
  integrity_ok_chance: 0.5
  verified_chance: 0.25
preferences:
  backend: sqlite
  path: /tmp/prefs.db
mqtt:
  enabled: true
  trigger_topic: panel/trigger
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Panel.ID != "front-desk" {
		t.Errorf("panel id = %q", cfg.Panel.ID)
	}
	if cfg.UIPort() != 9090 {
		t.Errorf("ui port = %d, want 9090", cfg.UIPort())
	}
	timing := cfg.Timing()
	if timing.Step != 5 || timing.StepDelay != 10*time.Millisecond || timing.SettleDelay != 50*time.Millisecond {
		t.Errorf("unexpected timing %+v", timing)
	}
	if cfg.VerifiedChance() != 0.25 {
		t.Errorf("verified chance = %v, want 0.25", cfg.VerifiedChance())
	}
	stages := cfg.Stages()
	if stages[2].Key != sequencer.Integrity || stages[2].OKChance != 0.5 {
		t.Errorf("integrity stage = %+v, want ok_chance 0.5", stages[2])
	}
	if stages[0].OKChance != 1 {
		t.Errorf("network stage should always pass, got %v", stages[0].OKChance)
	}
	if cfg.MQTTURL() != "tcp://localhost:1883" {
		t.Errorf("mqtt url = %q", cfg.MQTTURL())
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearPanelEnv(t)
	cfg, err := Load(writeConfig(t, "version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.UIPort() != 8080 {
		t.Errorf("default ui port = %d, want 8080", cfg.UIPort())
	}
	if cfg.Timing() != sequencer.DefaultTiming() {
		t.Errorf("default timing = %+v", cfg.Timing())
	}
	if cfg.VerifiedChance() != sequencer.DefaultVerifiedChance {
		t.Errorf("default verified chance = %v", cfg.VerifiedChance())
	}
	if cfg.Preferences.Backend != BackendFile {
		t.Errorf("default backend = %q", cfg.Preferences.Backend)
	}
	if cfg.LogMaxLines() != 500 {
		t.Errorf("default log lines = %d", cfg.LogMaxLines())
	}
}

func TestLoad_ZeroChanceIsKept(t *testing.T) {
	clearPanelEnv(t)
	cfg, err := Load(writeConfig(t, "version: 1\ncheck:\n  verified_chance: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VerifiedChance() != 0 {
		t.Errorf("verified chance = %v, want 0", cfg.VerifiedChance())
	}
}

func TestLoad_CustomStages(t *testing.T) {
	clearPanelEnv(t)
	cfg, err := Load(writeConfig(t, `
version: 1
check:
  stages:
    - {name: Link, target: 20, key: network}
    - {name: Disk, target: 40, key: storage}
    - {name: Scan, target: 90, key: integrity, ok_chance: 0.8}
    - {name: Sync, target: 100, key: ui}
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stages := cfg.Stages()
	if len(stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(stages))
	}
	if stages[0].OKChance != 1 || stages[2].OKChance != 0.8 {
		t.Errorf("unexpected chances: %v, %v", stages[0].OKChance, stages[2].OKChance)
	}
}

func TestLoad_PartialStagesRejected(t *testing.T) {
	clearPanelEnv(t)
	_, err := Load(writeConfig(t, `
version: 1
check:
  stages:
    - {name: A, target: 50, key: network}
    - {name: B, target: 100, key: storage}
`))
	if err == nil || !strings.Contains(err.Error(), "check.stages") {
		t.Fatalf("expected check.stages error, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearPanelEnv(t)
	tests := map[string]string{
		"version":      "version: 2\n",
		"chance":       "version: 1\ncheck:\n  verified_chance: 1.2\n",
		"backend":      "version: 1\npreferences:\n  backend: redis\n",
		"sqlite path":  "version: 1\npreferences:\n  backend: sqlite\n  path: \"\"\n",
		"stage target": "version: 1\ncheck:\n  stages:\n    - {name: A, target: 50, key: network}\n",
		"mqtt topics":  "version: 1\nmqtt:\n  enabled: true\n",
		"bad yaml":     "version: [1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearPanelEnv(t)
	t.Setenv("PANEL_UI_PORT", "7070")
	t.Setenv("PANEL_TLS_CERT", "/certs/panel.pem")
	t.Setenv("PANEL_TLS_KEY", "/certs/panel.key")
	t.Setenv("PANEL_ALERT_WEBHOOK_URL", "http://hooks.local/panel")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UIPort() != 7070 {
		t.Errorf("ui port = %d, want 7070", cfg.UIPort())
	}
	if cfg.TLS.CertFile != "/certs/panel.pem" || cfg.TLS.KeyFile != "/certs/panel.key" {
		t.Errorf("tls = %+v", cfg.TLS)
	}
	if cfg.Alerts.WebhookURL != "http://hooks.local/panel" {
		t.Errorf("webhook = %q", cfg.Alerts.WebhookURL)
	}

	t.Setenv("PANEL_UI_PORT", "eighty")
	if _, err := LoadOrDefault(""); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	clearPanelEnv(t)
	cfg, err := Load("../../configs/panel.yaml")
	if err != nil {
		t.Fatalf("shipped config failed to load: %v", err)
	}
	if cfg.Panel.ID != "front-desk" {
		t.Errorf("expected panel id 'front-desk', got %q", cfg.Panel.ID)
	}
	if got := cfg.Timing(); got != sequencer.DefaultTiming() {
		t.Errorf("expected default timing, got %+v", got)
	}
	if got := cfg.VerifiedChance(); got != sequencer.DefaultVerifiedChance {
		t.Errorf("expected verified chance %v, got %v", sequencer.DefaultVerifiedChance, got)
	}
	if got := cfg.AlertTimeout(); got != 10*time.Second {
		t.Errorf("expected 10s alert timeout, got %v", got)
	}
}
