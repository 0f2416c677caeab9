package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/bt-bridge/gemini-live/shared"
)

// Speaker binds a Scheduler to the default output device: one oto player
// pulling s16le at PlaybackRate from the scheduler's reader.
type Speaker struct {
	mu     sync.Mutex
	player *oto.Player
	closed bool
}

// NewSpeaker opens the output device and starts pulling from sched.
// bufferMs sizes the device buffer; smaller means lower latency.
func NewSpeaker(sched *Scheduler, bufferMs int) (*Speaker, error) {
	if sched == nil {
		return nil, shared.ErrNoConfig
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   PlaybackRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening output device: %v", shared.ErrNoDevice, err)
	}
	<-ready
	player := otoCtx.NewPlayer(sched)
	player.Play()
	return &Speaker{player: player}, nil
}

// Close stops playback and releases the player. Idempotent.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.player.Close()
}
