package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"
)

// playbackUnit is one decoded model buffer scheduled on the output timeline.
type playbackUnit struct {
	samples []float32
	start   int64 // absolute sample index of the scheduled start
	offset  int   // samples already consumed by the sink
}

// Scheduler provides gapless, cancelable playback of independently-arriving
// decoded buffers. Buffers are scheduled strictly in arrival order with
// contiguous start times; [Scheduler.Interrupt] flushes everything pending.
//
// The scheduler is the read side of the output device: it implements io.Reader
// producing s16le at PlaybackRate, zero-filling whenever nothing is scheduled,
// so the sink can pull continuously. The output clock is the total number of
// samples the sink has consumed.
type Scheduler struct {
	mu     sync.Mutex
	units  []*playbackUnit
	cursor int64 // next scheduled start; never behind clock except transiently inside Enqueue
	clock  int64 // samples consumed by the sink
	volume float64
	closed bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Enqueue schedules a decoded buffer at max(cursor, clock) and advances the
// cursor by its duration. Empty buffers and enqueues after Close are no-ops.
func (s *Scheduler) Enqueue(pcm []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(pcm) == 0 {
		return
	}
	if s.cursor < s.clock {
		s.cursor = s.clock
	}
	s.units = append(s.units, &playbackUnit{samples: pcm, start: s.cursor})
	s.cursor += int64(len(pcm))
}

// Interrupt force-stops every scheduled unit and resets the cursor to the
// output clock, discarding all unplayed audio. This is the barge-in path: the
// far end has started a new response and everything queued is stale.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = nil
	s.cursor = s.clock
	s.volume = 0
}

// Read serves the sink. Scheduled units play back-to-back in arrival order;
// idle stretches are zero-filled so the clock keeps advancing. Returns io.EOF
// once the scheduler is closed.
func (s *Scheduler) Read(p []byte) (int, error) {
	want := len(p) / 2
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if want == 0 {
		return 0, nil
	}
	var sum float64
	for i := range want {
		var v float32
		if len(s.units) > 0 {
			u := s.units[0]
			if u.start <= s.clock {
				v = u.samples[u.offset]
				u.offset++
				if u.offset == len(u.samples) {
					s.units = s.units[1:]
				}
			}
		}
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(p[i*2:], uint16(int16(v*32767)))
		sum += float64(v) * float64(v)
		s.clock++
	}
	if len(s.units) == 0 && s.cursor < s.clock {
		s.cursor = s.clock
	}
	s.volume = math.Min(1, 4*math.Sqrt(sum/float64(want)))
	if len(s.units) == 0 {
		// Natural completion: the speaking indicator drops to zero even if the
		// tail of this read still carried audio.
		s.volume = 0
	}
	return want * 2, nil
}

// OutputVolume is a best-effort estimate of the model's speaking level,
// derived from the most recent sink read. Presentation only.
func (s *Scheduler) OutputVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// ActiveCount reports how many buffers are scheduled or playing.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// CursorTime is the timeline position where the next buffer would start.
func (s *Scheduler) CursorTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return samplesToDuration(s.cursor)
}

// ClockTime is the output clock: how much audio the sink has consumed.
func (s *Scheduler) ClockTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return samplesToDuration(s.clock)
}

// Close flushes all pending audio and makes the scheduler terminal: further
// Reads return io.EOF and Enqueue is a no-op. Safe to call multiple times.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.units = nil
	s.cursor = s.clock
	s.volume = 0
	return nil
}

func samplesToDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / PlaybackRate
}
