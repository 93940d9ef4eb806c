package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"irbrainz/remote"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the irbrainz daemon.
//
// Keep defaults and validation centralized so the rest of the code can
// assume a well-formed config.
type Config struct {
	// IR receiver and remote selection
	IR IRConfig `yaml:"ir"`

	// Light model
	Light LightConfig `yaml:"light"`

	// Preset store
	Presets PresetsConfig `yaml:"presets"`

	// MQTT state publishing
	MQTT MQTTConfig `yaml:"mqtt"`

	// IPC configuration (used by ir-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server for the state websocket
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type IRConfig struct {
	Device string `yaml:"device"`
	// Remote is a profile key such as "ir44" or "disabled".
	Remote string `yaml:"remote"`
	// CustomRemoteFile is a YAML code table loaded into the "custom" profile.
	CustomRemoteFile string `yaml:"custom_remote_file,omitempty"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
	// Grab takes the device exclusively so key presses don't reach the console.
	Grab bool `yaml:"grab"`
}

type LightConfig struct {
	RGBW         bool `yaml:"rgbw"`
	PaletteCount int  `yaml:"palette_count"`
	ModeCount    int  `yaml:"mode_count"`
}

type PresetsConfig struct {
	// Path is the sqlite database file. Empty disables the store and every
	// preset button falls back to a built-in effect.
	Path string `yaml:"path"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		IR: IRConfig{
			Device:         "/dev/input/event0",
			Remote:         "ir44",
			PollIntervalMS: defaultPollIntervalMS,
			Grab:           true,
		},
		Light: LightConfig{
			RGBW:         false,
			PaletteCount: defaultPaletteCount,
			ModeCount:    defaultModeCount,
		},
		Presets: PresetsConfig{
			Path: "~/.local/share/irbrainz/presets.db",
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://127.0.0.1:1883",
			TopicPrefix: "irbrainz",
			QoS:         1,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/irbrainz.sock",
		},
		HTTP: HTTPConfig{
			Port: 3001,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the
// defaults. Unknown fields are rejected via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	} else if !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	return cfg, nil
}

// FlagOverrides holds flag values to apply on top of a loaded config. Each
// override is applied only if its pointer is non-nil.
type FlagOverrides struct {
	IRDevice *string
	Remote   *string

	IPCSocketPath *string
	HTTPPort      *int
	PresetsPath   *string
	MQTTBroker    *string

	LogLevel *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even if
// it holds a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.IRDevice != nil {
		cfg.IR.Device = *o.IRDevice
	}
	if o.Remote != nil {
		cfg.IR.Remote = *o.Remote
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.PresetsPath != nil {
		cfg.Presets.Path = *o.PresetsPath
	}
	if o.MQTTBroker != nil {
		// Naming a broker on the command line implies MQTT is wanted.
		cfg.MQTT.Broker = *o.MQTTBroker
		cfg.MQTT.Enabled = *o.MQTTBroker != ""
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// IR
	if c.IR.Device == "" {
		return errors.New("ir.device must not be empty")
	}
	if _, err := remote.ParseProfileID(c.IR.Remote); err != nil {
		return fmt.Errorf("ir.remote: %w", err)
	}
	if c.IR.PollIntervalMS <= 0 || c.IR.PollIntervalMS > 1000 {
		return errors.New("ir.poll_interval_ms must be between 1 and 1000")
	}

	// Light
	if c.Light.PaletteCount <= 0 || c.Light.PaletteCount > 255 {
		return errors.New("light.palette_count must be between 1 and 255")
	}
	if c.Light.ModeCount <= 0 || c.Light.ModeCount > 255 {
		return errors.New("light.mode_count must be between 1 and 255")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.TopicPrefix == "" {
			return errors.New("mqtt.topic_prefix must not be empty")
		}
		if c.MQTT.QoS > 2 {
			return errors.New("mqtt.qos must be 0, 1 or 2")
		}
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// RemoteProfile returns the configured remote. Call after Validate.
func (c *Config) RemoteProfile() remote.ProfileID {
	id, _ := remote.ParseProfileID(c.IR.Remote)
	return id
}

// PollInterval returns the daemon loop tick.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.IR.PollIntervalMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
