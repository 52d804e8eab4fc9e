package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/verifypanel/internal/sequencer"
)

// PanelConfig is the versioned panel.yaml document.
type PanelConfig struct {
	Version int `yaml:"version"`
	Panel   struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"panel"`
	Network struct {
		Bind   string `yaml:"bind"`
		UIPort int    `yaml:"ui_port"`
	} `yaml:"network"`
	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`
	Check       CheckConfig       `yaml:"check"`
	LogPane     LogPaneConfig     `yaml:"log_pane"`
	Preferences PreferencesConfig `yaml:"preferences"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CheckConfig tunes the verification run. Zero values fall back to the
// sequencer defaults; probabilities are pointers so 0 stays expressible.
type CheckConfig struct {
	Step              int           `yaml:"step"`
	StepDelay         time.Duration `yaml:"step_delay"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	IntegrityOKChance *float64      `yaml:"integrity_ok_chance"`
	VerifiedChance    *float64      `yaml:"verified_chance"`
	Stages            []StageConfig `yaml:"stages"`
}

// StageConfig describes a custom stage. A missing ok_chance means the stage
// always resolves ok.
type StageConfig struct {
	Name     string   `yaml:"name"`
	Target   int      `yaml:"target"`
	Key      string   `yaml:"key"`
	OKChance *float64 `yaml:"ok_chance"`
}

type LogPaneConfig struct {
	MaxLines int `yaml:"max_lines"`
}

// PreferencesConfig selects where the theme flag lives.
type PreferencesConfig struct {
	Backend  string         `yaml:"backend"` // memory, file, sqlite, postgres
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type MQTTConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	ClientID     string `yaml:"client_id"`
	Username     string `yaml:"username"`
	TriggerTopic string `yaml:"trigger_topic"`
	CueTopic     string `yaml:"cue_topic"`
}

type AlertsConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Default returns the configuration used when no file is given.
func Default() *PanelConfig {
	cfg := &PanelConfig{Version: 1}
	cfg.Panel.ID = "panel"
	cfg.Panel.Name = "Verification panel"
	cfg.Preferences.Backend = BackendFile
	cfg.Preferences.Path = "panel-prefs.yaml"
	return cfg
}

// Load reads panel.yaml, applies environment overrides and validates it.
func Load(path string) (*PanelConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported panel.yaml version: %d", cfg.Version)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the validated default configuration
// with environment overrides when path is empty.
func LoadOrDefault(path string) (*PanelConfig, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with PANEL_* environment variables.
func (c *PanelConfig) ApplyEnv() error {
	if v := os.Getenv("PANEL_UI_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PANEL_UI_PORT %q: %w", v, err)
		}
		c.Network.UIPort = port
	}
	if v := os.Getenv("PANEL_TLS_CERT"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("PANEL_TLS_KEY"); v != "" {
		c.TLS.KeyFile = v
	}
	if v := os.Getenv("PANEL_ALERT_WEBHOOK_URL"); v != "" {
		c.Alerts.WebhookURL = v
	}
	if v := os.Getenv("PANEL_MQTT_URL"); v != "" {
		c.MQTT.URL = v
	}
	return nil
}

func (c *PanelConfig) Validate() error {
	var errs []error

	if c.Network.UIPort < 0 || c.Network.UIPort > 65535 {
		errs = append(errs, fmt.Errorf("network.ui_port %d out of range", c.Network.UIPort))
	}
	if c.Check.Step < 0 {
		errs = append(errs, fmt.Errorf("check.step must not be negative"))
	}
	if c.Check.StepDelay < 0 || c.Check.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("check delays must not be negative"))
	}
	for name, p := range map[string]*float64{
		"check.integrity_ok_chance": c.Check.IntegrityOKChance,
		"check.verified_chance":     c.Check.VerifiedChance,
	} {
		if p != nil && (*p < 0 || *p > 1) {
			errs = append(errs, fmt.Errorf("%s %v outside [0,1]", name, *p))
		}
	}
	if err := sequencer.ValidateStages(c.Stages()); err != nil {
		errs = append(errs, fmt.Errorf("check.stages: %w", err))
	}

	switch c.Preferences.Backend {
	case BackendMemory, BackendPostgres:
	case BackendFile, BackendSQLite:
		if c.Preferences.Path == "" {
			errs = append(errs, fmt.Errorf("preferences.path required for %s backend", c.Preferences.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown preferences.backend %q", c.Preferences.Backend))
	}

	if c.MQTT.Enabled && c.MQTT.TriggerTopic == "" && c.MQTT.CueTopic == "" {
		errs = append(errs, fmt.Errorf("mqtt enabled without trigger_topic or cue_topic"))
	}

	return errors.Join(errs...)
}

// UIPort returns the configured UI port, defaulting to 8080 if not set.
func (c *PanelConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// Addr is the listen address for the HTTP server.
func (c *PanelConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Network.Bind, c.UIPort())
}

// Timing returns the progress ramp settings with defaults filled in.
func (c *PanelConfig) Timing() sequencer.Timing {
	t := sequencer.DefaultTiming()
	if c.Check.Step > 0 {
		t.Step = c.Check.Step
	}
	if c.Check.StepDelay > 0 {
		t.StepDelay = c.Check.StepDelay
	}
	if c.Check.SettleDelay > 0 {
		t.SettleDelay = c.Check.SettleDelay
	}
	return t
}

func (c *PanelConfig) VerifiedChance() float64 {
	if c.Check.VerifiedChance != nil {
		return *c.Check.VerifiedChance
	}
	return sequencer.DefaultVerifiedChance
}

// Stages returns the configured stages, or the default four with the
// integrity chance override applied.
func (c *PanelConfig) Stages() []sequencer.Stage {
	if len(c.Check.Stages) > 0 {
		stages := make([]sequencer.Stage, 0, len(c.Check.Stages))
		for _, sc := range c.Check.Stages {
			chance := 1.0
			if sc.OKChance != nil {
				chance = *sc.OKChance
			}
			stages = append(stages, sequencer.Stage{
				Name:     sc.Name,
				Target:   sc.Target,
				Key:      sequencer.IndicatorKey(sc.Key),
				OKChance: chance,
			})
		}
		return stages
	}
	stages := sequencer.DefaultStages()
	if c.Check.IntegrityOKChance != nil {
		for i := range stages {
			if stages[i].Key == sequencer.Integrity {
				stages[i].OKChance = *c.Check.IntegrityOKChance
			}
		}
	}
	return stages
}

func (c *PanelConfig) LogMaxLines() int {
	if c.LogPane.MaxLines > 0 {
		return c.LogPane.MaxLines
	}
	return 500
}

// MQTTURL returns the broker URL, defaulting to a local broker.
func (c *PanelConfig) MQTTURL() string {
	if c.MQTT.URL != "" {
		return c.MQTT.URL
	}
	return "tcp://localhost:1883"
}

func (c *PanelConfig) AlertTimeout() time.Duration {
	if c.Alerts.Timeout > 0 {
		return c.Alerts.Timeout
	}
	return 10 * time.Second
}
