package agents

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the YAML configuration of the CLI voice agent.
type Config struct {
	// Model and Voice select the live session; empty values fall back to the
	// client defaults.
	Model string `yaml:"model"`
	Voice string `yaml:"voice"`
	// Persona is the system instruction the assistant speaks as.
	Persona string `yaml:"persona"`
	// UseEphemeralToken avoids placing the API key in the websocket URL.
	UseEphemeralToken bool `yaml:"useEphemeralToken"`
	// SpeakerBufferMs sizes the output device buffer.
	SpeakerBufferMs int `yaml:"speakerBufferMs"`
	// MeterRefreshMs is the volume-meter refresh interval; 0 disables meters.
	MeterRefreshMs int `yaml:"meterRefreshMs"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Persona:         "You are a natural, friendly assistant. Keep your spoken answers short and conversational.",
		SpeakerBufferMs: 100,
		MeterRefreshMs:  0,
		Log: LogConfig{
			File:       "cli/cli.log",
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 3,
		},
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing file is an
// error; an empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.SpeakerBufferMs <= 0 {
		cfg.SpeakerBufferMs = DefaultConfig().SpeakerBufferMs
	}
	return cfg, nil
}
