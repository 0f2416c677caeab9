// Package audio implements the realtime audio pipeline: the PCM wire codec,
// the microphone capture pipeline and the gapless playback scheduler.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/bt-bridge/gemini-live/shared"
)

const (
	// CaptureRate is the microphone sample rate expected by the live session.
	CaptureRate = 16000
	// PlaybackRate is the sample rate of synthesized audio from the model.
	PlaybackRate = 24000
	// Channels is fixed to mono on both directions.
	Channels = 1
	// FrameSize is the number of samples per capture frame.
	FrameSize = 4096
)

// CaptureMimeType tags outbound frames with their encoding and rate.
const CaptureMimeType = "audio/pcm;rate=16000"

// Blob is one transport-ready capture frame: base64-encoded s16le PCM plus its
// MIME tag.
type Blob struct {
	Data     string
	MimeType string
}

// EncodeFrame converts normalized float samples to a transport blob. Samples
// outside [-1, 1] are clamped. EncodeFrame never fails.
func EncodeFrame(samples []float32) Blob {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(s*32767)))
	}
	return Blob{
		Data:     base64.StdEncoding.EncodeToString(buf),
		MimeType: CaptureMimeType,
	}
}

// DecodeFrame reverses the base64 step of EncodeFrame, returning the raw s16le
// bytes. Malformed input yields shared.ErrMalformedAudio.
func DecodeFrame(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedAudio, err)
	}
	return raw, nil
}

// DecodeAudioData reinterprets raw s16le bytes as normalized float samples.
// Zero-length input returns an empty buffer; an odd trailing byte is ignored.
func DecodeAudioData(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := range n {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return samples
}

// RMS returns a perceptual volume estimate in [0, 1] for one frame. Raw
// root-mean-square of speech rarely exceeds 0.25, so it is scaled up before
// clamping.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Min(1, 4*math.Sqrt(sum/float64(len(samples))))
}

// FrameSamples returns the sample count covering duration at the given rate
// and channel layout.
func FrameSamples(duration time.Duration, rate, channels int) int {
	return int(duration.Seconds() * float64(channels) * float64(rate))
}
