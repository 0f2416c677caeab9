package live

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMessageEventType(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected ServerEventType
	}{
		{
			name:     "setup complete",
			raw:      `{"setupComplete":{}}`,
			expected: ServerEventTypeSetupComplete,
		},
		{
			name:     "server content",
			raw:      `{"serverContent":{"turnComplete":true}}`,
			expected: ServerEventTypeServerContent,
		},
		{
			name:     "go away",
			raw:      `{"goAway":{"timeLeft":"30s"}}`,
			expected: ServerEventTypeGoAway,
		},
		{
			name:     "error",
			raw:      `{"error":{"code":400,"message":"bad setup","status":"INVALID_ARGUMENT"}}`,
			expected: ServerEventTypeError,
		},
		{
			name:     "error wins over content",
			raw:      `{"serverContent":{},"error":{"code":500,"message":"boom"}}`,
			expected: ServerEventTypeError,
		},
		{
			name:     "unrecognized frame",
			raw:      `{"usageMetadata":{"totalTokenCount":12}}`,
			expected: ServerEventTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg serverMessage
			require.NoError(t, sonic.Unmarshal([]byte(tt.raw), &msg))
			assert.Equal(t, tt.expected, msg.EventType())
		})
	}
}

func TestServerContentUnmarshal(t *testing.T) {
	raw := `{
		"serverContent": {
			"modelTurn": {
				"parts": [
					{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "AAD/fw=="}}
				]
			},
			"interrupted": true
		}
	}`
	var msg serverMessage
	require.NoError(t, sonic.Unmarshal([]byte(raw), &msg))
	require.NotNil(t, msg.ServerContent)
	require.NotNil(t, msg.ServerContent.ModelTurn)
	require.Len(t, msg.ServerContent.ModelTurn.Parts, 1)
	part := msg.ServerContent.ModelTurn.Parts[0]
	require.NotNil(t, part.InlineData)
	assert.Equal(t, "AAD/fw==", part.InlineData.Data)
	assert.True(t, msg.ServerContent.Interrupted)
	assert.False(t, msg.ServerContent.TurnComplete)
}

func TestSetupMessageShape(t *testing.T) {
	cfg := SessionConfig{
		Model:             "gemini-2.0-flash-live-001",
		Voice:             "Kore",
		SystemInstruction: "You are a pirate.",
	}
	data, err := sonic.Marshal(cfg.setupMessage())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(data, &decoded))
	setup, ok := decoded["setup"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "models/gemini-2.0-flash-live-001", setup["model"])

	gen, ok := setup["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"AUDIO"}, gen["responseModalities"])

	si, ok := setup["systemInstruction"].(map[string]any)
	require.True(t, ok)
	parts, ok := si["parts"].([]any)
	require.True(t, ok)
	require.Len(t, parts, 1)
	assert.Equal(t, "You are a pirate.", parts[0].(map[string]any)["text"])
}

func TestSetupMessageOmitsEmptyInstruction(t *testing.T) {
	cfg := (&SessionConfig{}).withDefaults()
	data, err := sonic.Marshal(cfg.setupMessage())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "systemInstruction")
	assert.Contains(t, string(data), DefaultVoice)
	assert.Contains(t, string(data), "models/"+DefaultModel)
}
