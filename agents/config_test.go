package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Positive(t, cfg.SpeakerBufferMs)
	assert.NotEmpty(t, cfg.Persona)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	raw := `
model: gemini-2.0-flash-live-001
voice: Kore
persona: You are a pirate.
useEphemeralToken: true
meterRefreshMs: 100
log:
  file: /tmp/agent.log
  maxSizeMB: 5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash-live-001", cfg.Model)
	assert.Equal(t, "Kore", cfg.Voice)
	assert.Equal(t, "You are a pirate.", cfg.Persona)
	assert.True(t, cfg.UseEphemeralToken)
	assert.Equal(t, 100, cfg.MeterRefreshMs)
	assert.Equal(t, "/tmp/agent.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxSizeMB)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultConfig().SpeakerBufferMs, cfg.SpeakerBufferMs)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
