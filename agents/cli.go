package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	live "github.com/bt-bridge/gemini-live"
	"github.com/bt-bridge/gemini-live/audio"
	"github.com/bt-bridge/gemini-live/shared"
)

// VoiceAgent drives one terminal voice conversation. It owns the session
// client plus the local audio pipeline (microphone capture, playback
// scheduler, speaker) and renders state badges, log entries and volume meters
// through the printer.
type VoiceAgent struct {
	logger  shared.LoggerAdapter
	printer *shared.Printer
	convo   *shared.ConversationLog
	client  *live.Client
	cfg     Config

	mu          sync.Mutex
	capture     *audio.Capture
	sched       *audio.Scheduler
	speaker     *audio.Speaker
	meterCancel context.CancelFunc
	closed      bool

	done     chan struct{}
	doneOnce sync.Once
}

// Spawn creates the session client and registers all handlers. It does not
// open the session; call Connect for that.
func (a *VoiceAgent) Spawn(
	logger shared.LoggerAdapter,
	apiKey string,
	cfg Config,
	printer *shared.Printer,
	baseUrl ...string,
) error {
	if logger == nil {
		return shared.ErrNoLogger
	}
	if apiKey == "" {
		return shared.ErrNoAPIKey
	}
	if printer == nil {
		return errors.New("no printer provided")
	}
	a.logger = logger
	a.printer = printer
	a.cfg = cfg
	a.done = make(chan struct{})
	a.convo = shared.NewConversationLog()
	a.convo.OnAppend(func(e shared.LogEntry) {
		if err := a.printer.Entry(e); err != nil {
			a.logger.Error("printing log entry", err)
		}
	})
	a.logger.Info("spawning voice agent")
	if err := a.printer.Writeln("🤖 Spawning voice agent...\n", 0); err != nil {
		a.logger.Error("printing spawning message", err)
	}

	sessCfg := &live.SessionConfig{
		Model:             cfg.Model,
		Voice:             cfg.Voice,
		SystemInstruction: cfg.Persona,
		UseEphemeralToken: cfg.UseEphemeralToken,
	}
	if len(baseUrl) > 0 {
		sessCfg.BaseURL = baseUrl[0]
	}
	client, err := live.NewClient(a.logger, apiKey, sessCfg)
	if err != nil {
		a.logger.Error("creating client", err)
		return err
	}
	a.client = client
	a.logger.Info("client created successfully")

	if err := a.client.RegisterAudioHandler(a.onAudio); err != nil {
		a.logger.Error("registering audio handler", err)
		return err
	}
	if err := a.client.RegisterEventHandler(a.onEvent); err != nil {
		a.logger.Error("registering event handler", err)
		return err
	}
	if err := a.client.RegisterStateHandler(a.onState); err != nil {
		a.logger.Error("registering state handler", err)
		return err
	}
	a.logger.Info("handlers registered successfully")
	return nil
}

// Connect acquires the microphone and speaker, opens the session and starts
// streaming capture frames. A local audio failure aborts the session attempt:
// the client lands in the error state and the failure shows up once in the
// conversation log.
func (a *VoiceAgent) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return errors.New("agent is closed")
	}
	if a.capture != nil {
		a.mu.Unlock()
		return shared.ErrAlreadyConnected
	}
	a.mu.Unlock()

	if err := a.printer.Writeln("🎤 Accessing microphone...", 0); err != nil {
		a.logger.Error("printing microphone access message", err)
	}
	capture, err := audio.NewCapture(a.logger)
	if err != nil {
		a.client.Abort(err)
		a.convo.Append(shared.SenderSystem, "microphone unavailable: "+err.Error())
		return err
	}
	sched := audio.NewScheduler()
	speaker, err := audio.NewSpeaker(sched, a.cfg.SpeakerBufferMs)
	if err != nil {
		_ = capture.Close()
		_ = sched.Close()
		a.client.Abort(err)
		a.convo.Append(shared.SenderSystem, "audio output unavailable: "+err.Error())
		return err
	}
	a.mu.Lock()
	a.capture = capture
	a.sched = sched
	a.speaker = speaker
	a.mu.Unlock()
	a.logger.Info("audio pipeline ready")

	if err := a.client.Connect(ctx); err != nil {
		a.releaseAudio()
		a.convo.Append(shared.SenderSystem, "connect failed: "+err.Error())
		return err
	}

	// Frames may start flowing before the server acknowledges setup; the
	// client rejects them with ErrNoSession only when no session exists at
	// all, which the forwarder drops silently.
	if err := capture.Start(func(blob audio.Blob) {
		if err := a.client.Send(blob); err != nil && !errors.Is(err, shared.ErrNoSession) {
			a.logger.Warn("forwarding capture frame", zap.Error(err))
		}
	}); err != nil {
		a.client.Abort(err)
		a.releaseAudio()
		a.convo.Append(shared.SenderSystem, "microphone start failed: "+err.Error())
		return err
	}

	if a.cfg.MeterRefreshMs > 0 {
		meterCtx, cancelMeter := context.WithCancel(context.Background())
		a.mu.Lock()
		a.meterCancel = cancelMeter
		a.mu.Unlock()
		go a.meterLoop(meterCtx)
	}
	a.convo.Append(shared.SenderSystem, "session starting")
	return nil
}

// Disconnect ends the session deliberately and releases the audio pipeline.
func (a *VoiceAgent) Disconnect() error {
	err := a.client.Disconnect()
	a.releaseAudio()
	if err != nil {
		return err
	}
	a.convo.Append(shared.SenderSystem, "session closed")
	return nil
}

// ToggleMute flips the microphone track and reports the new muted state.
// Muted capture keeps producing frames, just silent ones.
func (a *VoiceAgent) ToggleMute() bool {
	a.mu.Lock()
	capture := a.capture
	a.mu.Unlock()
	if capture == nil {
		return false
	}
	muted := !capture.Muted()
	capture.SetMuted(muted)
	if muted {
		a.convo.Append(shared.SenderSystem, "microphone muted")
	} else {
		a.convo.Append(shared.SenderSystem, "microphone unmuted")
	}
	return muted
}

// Log exposes the conversation record.
func (a *VoiceAgent) Log() *shared.ConversationLog {
	return a.convo
}

// InputVolume reports the microphone level in [0, 1]; 0 when no capture runs.
func (a *VoiceAgent) InputVolume() float64 {
	a.mu.Lock()
	capture := a.capture
	a.mu.Unlock()
	if capture == nil {
		return 0
	}
	return capture.InputVolume()
}

// OutputVolume reports the playback level in [0, 1]; 0 when no session plays.
func (a *VoiceAgent) OutputVolume() float64 {
	a.mu.Lock()
	sched := a.sched
	a.mu.Unlock()
	if sched == nil {
		return 0
	}
	return sched.OutputVolume()
}

// Done is closed once the agent reaches a terminal state: the session ended,
// errored, or Close was called.
func (a *VoiceAgent) Done() <-chan struct{} {
	return a.done
}

func (a *VoiceAgent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	state := a.client.State()
	if state == live.StateConnected || state == live.StateConnecting {
		if err := a.client.Disconnect(); err != nil {
			a.logger.Warn("disconnecting on close", zap.Error(err))
		}
	}
	a.releaseAudio()
	a.signalDone()
	return nil
}

func (a *VoiceAgent) onAudio(samples []float32) {
	a.mu.Lock()
	sched := a.sched
	a.mu.Unlock()
	if sched == nil {
		return
	}
	sched.Enqueue(samples)
}

func (a *VoiceAgent) onEvent(event *live.Event) {
	switch event.Type {
	case live.EventInterrupted:
		a.mu.Lock()
		sched := a.sched
		a.mu.Unlock()
		if sched != nil {
			sched.Interrupt()
		}
		a.convo.Append(shared.SenderSystem, "response interrupted")
	case live.EventTurnComplete:
		a.logger.Debug("model turn complete")
	case live.EventGoAway:
		text := "server is closing the session"
		if event.TimeLeft != "" {
			text += " in " + event.TimeLeft
		}
		a.convo.Append(shared.SenderSystem, text)
	case live.EventError:
		a.convo.Append(shared.SenderSystem, "session error: "+event.Err.Error())
	}
}

func (a *VoiceAgent) onState(prev, next live.State) {
	if err := a.printer.Badge(next.String()); err != nil {
		a.logger.Error("printing state badge", err)
	}
	if next == live.StateDisconnected || next == live.StateError {
		// Covers remote closes too: the audio pipeline never outlives the
		// session.
		a.releaseAudio()
		if prev != live.StateDisconnected {
			a.signalDone()
		}
	}
}

// releaseAudio tears down capture, scheduler and speaker. Idempotent.
func (a *VoiceAgent) releaseAudio() {
	a.mu.Lock()
	capture, sched, speaker := a.capture, a.sched, a.speaker
	cancelMeter := a.meterCancel
	a.capture, a.sched, a.speaker, a.meterCancel = nil, nil, nil, nil
	a.mu.Unlock()
	if cancelMeter != nil {
		cancelMeter()
	}
	if capture != nil {
		if err := capture.Close(); err != nil {
			a.logger.Warn("closing capture", zap.Error(err))
		}
	}
	if sched != nil {
		_ = sched.Close()
	}
	if speaker != nil {
		if err := speaker.Close(); err != nil {
			a.logger.Warn("closing speaker", zap.Error(err))
		}
	}
}

func (a *VoiceAgent) meterLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(a.cfg.MeterRefreshMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.client.State() != live.StateConnected {
				continue
			}
			line := fmt.Sprintf("\r🎤 %s  🔈 %s ", meterBar(a.InputVolume()), meterBar(a.OutputVolume()))
			if err := a.printer.Write(line, 0); err != nil {
				a.logger.Error("printing volume meters", err)
			}
		}
	}
}

func meterBar(v float64) string {
	const width = 10
	n := int(v*width + 0.5)
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("█", n) + strings.Repeat("░", width-n) + "]"
}

func (a *VoiceAgent) signalDone() {
	a.doneOnce.Do(func() { close(a.done) })
}
