package live

import "fmt"

const (
	DefaultModel   = "gemini-2.0-flash-live-001"
	DefaultVoice   = "Puck"
	DefaultBaseURL = "wss://generativelanguage.googleapis.com/ws"

	bidiGenerateContentPath = "/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
)

// SessionConfig describes one live voice session. Zero values fall back to the
// package defaults; SystemInstruction is the persona text spoken as, and may
// be empty.
type SessionConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
	// BaseURL overrides the websocket endpoint. Primarily used in tests to
	// point at a local mock server.
	BaseURL string
	// UseEphemeralToken mints a single-use auth token over REST before dialing
	// instead of placing the long-lived API key in the websocket URL.
	UseEphemeralToken bool
}

func (cfg *SessionConfig) withDefaults() SessionConfig {
	out := *cfg
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.Voice == "" {
		out.Voice = DefaultVoice
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	return out
}

// setupMessage builds the session-opening frame: audio-only response modality,
// the configured voice, and the persona as system instruction.
func (cfg *SessionConfig) setupMessage() *setupMessage {
	msg := &setupMessage{
		Setup: setupConfig{
			Model: fmt.Sprintf("models/%s", cfg.Model),
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
					},
				},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	return msg
}
