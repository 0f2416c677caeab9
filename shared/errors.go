package shared

import "errors"

var (
	ErrNoLogger           = errors.New("no logger provided")
	ErrNoAPIKey           = errors.New("no API key provided")
	ErrNoConfig           = errors.New("no config provided")
	ErrNoAudioHandler     = errors.New("no audio handler provided")
	ErrAHandlerAlreadySet = errors.New("audio handler already set")
	ErrEHandlerAlreadySet = errors.New("event handler already set")
	ErrSHandlerAlreadySet = errors.New("state handler already set")
	ErrAlreadyConnected   = errors.New("session already connecting or connected")

	// Failure taxonomy for an active session.
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNoDevice         = errors.New("audio device unavailable")
	ErrSessionFailed    = errors.New("remote session failed")
	ErrMalformedAudio   = errors.New("malformed audio payload")
	ErrNoSession        = errors.New("no active session")
)
