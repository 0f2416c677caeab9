package live

import "encoding/json"

// Wire types for the BidiGenerateContent websocket protocol. Outgoing messages
// wrap exactly one of setup / realtimeInput; incoming frames carry one of
// setupComplete / serverContent / goAway / error.

type ServerEventType string

const (
	ServerEventTypeSetupComplete ServerEventType = "setupComplete"
	ServerEventTypeServerContent ServerEventType = "serverContent"
	ServerEventTypeGoAway        ServerEventType = "goAway"
	ServerEventTypeError         ServerEventType = "error"
	ServerEventTypeUnknown       ServerEventType = "unknown"
)

// ── Outgoing ──────────────────────────────────────────────────────────────────

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model             string             `json:"model"`
	GenerationConfig  generationConfig   `json:"generationConfig"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded PCM
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded PCM
}

// ── Incoming ──────────────────────────────────────────────────────────────────

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	GoAway        *goAway          `json:"goAway,omitempty"`
	Error         *apiError        `json:"error,omitempty"`
}

// EventType classifies an incoming frame for dispatch.
func (m *serverMessage) EventType() ServerEventType {
	switch {
	case m.Error != nil:
		return ServerEventTypeError
	case m.SetupComplete != nil:
		return ServerEventTypeSetupComplete
	case m.ServerContent != nil:
		return ServerEventTypeServerContent
	case m.GoAway != nil:
		return ServerEventTypeGoAway
	}
	return ServerEventTypeUnknown
}

type serverContent struct {
	ModelTurn    *modelTurn `json:"modelTurn,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
	Interrupted  bool       `json:"interrupted,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// ── Handler-facing events ─────────────────────────────────────────────────────

type EventType string

const (
	// EventTurnComplete signals the model finished its response. No transcript
	// accompanies it in audio-only mode.
	EventTurnComplete EventType = "turn_complete"
	// EventInterrupted signals barge-in: all queued playback is stale and must
	// be flushed.
	EventInterrupted EventType = "interrupted"
	// EventGoAway warns that the server will close the session soon.
	EventGoAway EventType = "go_away"
	// EventError carries a server-reported session error; the session is
	// already being torn down when the handler sees it.
	EventError EventType = "error"
)

// Event is a non-audio notification delivered to the registered event handler.
type Event struct {
	Type EventType
	// Err is set for EventError.
	Err error
	// TimeLeft is set for EventGoAway when the server announced a deadline.
	TimeLeft string
}
