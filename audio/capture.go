package audio

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/bt-bridge/gemini-live/shared"
)

// FrameHandler receives one encoded capture frame. It runs on the audio
// backend's callback goroutine and must not block.
type FrameHandler func(blob Blob)

// Capture owns the microphone stream. It delivers fixed FrameSize frames at
// CaptureRate to the registered handler, updating a volume estimate per frame.
//
// Muting follows track-disable semantics: the device keeps running and frames
// keep flowing to the handler, but their samples are replaced with silence.
// Suppressing the send entirely is deliberately not done; the far end's voice
// activity detection stays aware that the stream is alive.
type Capture struct {
	logger shared.LoggerAdapter

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	handler FrameHandler
	pending []float32
	closed  bool

	muted  atomic.Bool
	volume atomic.Uint64 // math.Float64bits
}

// NewCapture acquires the default capture device at CaptureRate mono s16.
// Backend init failure maps to shared.ErrNoDevice; an access-denied device
// open maps to shared.ErrPermissionDenied.
func NewCapture(logger shared.LoggerAdapter) (*Capture, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	c := &Capture{logger: logger}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Trace("miniaudio", zap.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initializing audio backend: %v", shared.ErrNoDevice, err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = Channels
	cfg.SampleRate = CaptureRate
	cfg.PeriodSizeInFrames = FrameSize

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: c.onData})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		if strings.Contains(strings.ToLower(err.Error()), "access denied") {
			return nil, fmt.Errorf("%w: %v", shared.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: opening capture device: %v", shared.ErrNoDevice, err)
	}

	c.mctx = mctx
	c.device = device
	return c, nil
}

// Start registers the frame handler and starts the device.
func (c *Capture) Start(handler FrameHandler) error {
	if handler == nil {
		return shared.ErrNoAudioHandler
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrNoDevice
	}
	c.handler = handler
	device := c.device
	c.mu.Unlock()
	if err := device.Start(); err != nil {
		return fmt.Errorf("%w: starting capture device: %v", shared.ErrNoDevice, err)
	}
	return nil
}

// onData is the device callback. Raw s16 bytes are assembled into exact
// FrameSize frames; a cleanup racing the callback is tolerated by checking
// closed under the same lock the cleanup takes.
func (c *Capture) onData(_, input []byte, _ uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending = append(c.pending, DecodeAudioData(input)...)
	for len(c.pending) >= FrameSize {
		frame := c.pending[:FrameSize]
		c.processFrame(frame)
		c.pending = c.pending[FrameSize:]
	}
}

func (c *Capture) processFrame(frame []float32) {
	if c.muted.Load() {
		for i := range frame {
			frame[i] = 0
		}
	}
	c.volume.Store(math.Float64bits(RMS(frame)))
	if c.handler != nil {
		c.handler(EncodeFrame(frame))
	}
}

// SetMuted flips the track-enable flag only; capture and metering continue.
func (c *Capture) SetMuted(muted bool) {
	c.muted.Store(muted)
}

func (c *Capture) Muted() bool {
	return c.muted.Load()
}

// InputVolume is the volume estimate of the most recent frame, in [0, 1].
func (c *Capture) InputVolume() float64 {
	return math.Float64frombits(c.volume.Load())
}

// Close stops the device and releases the stream. Idempotent; no frame is
// processed after Close returns. Resets the volume indicator.
//
// Device teardown happens outside the frame lock: Uninit joins the audio
// thread, which may be blocked in onData waiting for that same lock.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.handler = nil
	c.pending = nil
	c.volume.Store(0)
	device := c.device
	mctx := c.mctx
	c.device = nil
	c.mctx = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if mctx != nil {
		if err := mctx.Uninit(); err != nil {
			c.logger.Error("uninitializing audio backend", err)
		}
		mctx.Free()
	}
	return nil
}
