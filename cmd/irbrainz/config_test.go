package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"irbrainz/remote"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irbrainz.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RemoteProfile() != remote.ProfileIR44 {
		t.Fatalf("default remote=%v, want ir44", cfg.RemoteProfile())
	}
	if cfg.PollInterval().Milliseconds() != defaultPollIntervalMS {
		t.Fatalf("poll interval=%v", cfg.PollInterval())
	}
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
ir:
  device: /dev/input/event7
  remote: ir24
light:
  rgbw: true
mqtt:
  enabled: true
  broker: tcp://broker.lan:1883
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IR.Device != "/dev/input/event7" || cfg.RemoteProfile() != remote.ProfileIR24 {
		t.Fatalf("ir section not applied: %+v", cfg.IR)
	}
	if !cfg.Light.RGBW {
		t.Fatalf("light.rgbw not applied")
	}
	// Untouched values keep their defaults.
	if cfg.MQTT.TopicPrefix != "irbrainz" || cfg.HTTP.Port != 3001 || !cfg.IR.Grab {
		t.Fatalf("defaults lost: mqtt=%+v http=%+v", cfg.MQTT, cfg.HTTP)
	}
}

func TestLoadConfigFile_RejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "ir:\n  devcie: /dev/input/event1\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfig(t, "ir:\n  remote: ir24\n---\nir:\n  remote: ir44\n")
	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("expected trailing document error, got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown remote", func(c *Config) { c.IR.Remote = "ir99" }},
		{"empty device", func(c *Config) { c.IR.Device = "" }},
		{"poll interval", func(c *Config) { c.IR.PollIntervalMS = 0 }},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.Broker = "" }},
		{"mqtt qos", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }},
		{"http port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	broker := "tcp://10.0.0.2:1883"
	port := 0
	remoteKey := "disabled"

	FlagOverrides{MQTTBroker: &broker, HTTPPort: &port, Remote: &remoteKey}.Apply(&cfg)

	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != broker {
		t.Fatalf("mqtt broker override did not enable mqtt: %+v", cfg.MQTT)
	}
	if cfg.HTTP.Port != 0 {
		t.Fatalf("zero value override not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.RemoteProfile() != remote.ProfileDisabled {
		t.Fatalf("remote=%v, want disabled", cfg.RemoteProfile())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/presets.db"); got != filepath.Join(home, "x/presets.db") {
		t.Fatalf("ExpandPath=%q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"error":   LogLevelError,
		"WARN":    LogLevelWarn,
		"warning": LogLevelWarn,
		" info ":  LogLevelInfo,
		"debug":   LogLevelDebug,
	}
	for in, want := range cases {
		got, err := parseLogLevel(in)
		if err != nil {
			t.Fatalf("parseLogLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseLogLevel(%q)=%q, want %q", in, got, want)
		}
	}
	if _, err := parseLogLevel("trace"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
