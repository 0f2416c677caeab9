package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain pulls n samples from the scheduler and returns them decoded.
func drain(t *testing.T, s *Scheduler, n int) []float32 {
	t.Helper()
	buf := make([]byte, n*2)
	read, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), read)
	return DecodeAudioData(buf)
}

func ramp(n int, base float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = base + float32(i)*0.001
	}
	return out
}

func TestSchedulerGaplessPlayback(t *testing.T) {
	s := NewScheduler()
	a := ramp(100, 0.1)
	b := ramp(50, -0.5)
	c := ramp(25, 0.3)
	s.Enqueue(a)
	s.Enqueue(b)
	s.Enqueue(c)
	assert.Equal(t, 3, s.ActiveCount())

	got := drain(t, s, 175)
	want := append(append(append([]float32{}, a...), b...), c...)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1.0/32767, "sample %d", i)
	}
	assert.Zero(t, s.ActiveCount())
}

func TestSchedulerZeroFillsWhenIdle(t *testing.T) {
	s := NewScheduler()
	got := drain(t, s, 64)
	for i, v := range got {
		assert.Zero(t, v, "sample %d", i)
	}
	assert.Equal(t, samplesToDuration(64), s.ClockTime())
}

func TestSchedulerCursorSnapsAfterIdle(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(ramp(10, 0.2))
	drain(t, s, 10)

	// Idle gap: the sink keeps pulling zeros.
	drain(t, s, 90)
	require.Zero(t, s.ActiveCount())

	// The next buffer must start at the output clock, not at the stale cursor,
	// or playback would lag by the length of the gap.
	s.Enqueue(ramp(20, 0.4))
	assert.Equal(t, samplesToDuration(100), s.ClockTime())
	assert.Equal(t, samplesToDuration(120), s.CursorTime())
	got := drain(t, s, 20)
	assert.InDelta(t, 0.4, got[0], 1.0/32767)
}

func TestSchedulerCursorMonotone(t *testing.T) {
	s := NewScheduler()
	prev := s.CursorTime()
	for i := 0; i < 5; i++ {
		s.Enqueue(ramp(30, 0.1))
		require.GreaterOrEqual(t, s.CursorTime(), prev)
		prev = s.CursorTime()
		drain(t, s, 40)
		require.GreaterOrEqual(t, s.CursorTime(), prev)
		prev = s.CursorTime()
	}
}

func TestSchedulerInterrupt(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(ramp(100, 0.5))
	s.Enqueue(ramp(100, 0.5))
	drain(t, s, 30)
	require.Equal(t, 2, s.ActiveCount())

	s.Interrupt()
	assert.Zero(t, s.ActiveCount())
	assert.Equal(t, s.ClockTime(), s.CursorTime())
	assert.Zero(t, s.OutputVolume())

	// Everything queued was discarded; only silence remains.
	for i, v := range drain(t, s, 50) {
		assert.Zero(t, v, "sample %d", i)
	}
}

func TestSchedulerOutputVolume(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(ramp(200, 0.5))
	drain(t, s, 100)
	assert.Positive(t, s.OutputVolume())

	// Natural completion resets the speaking indicator.
	drain(t, s, 100)
	assert.Zero(t, s.OutputVolume())
}

func TestSchedulerClose(t *testing.T) {
	s := NewScheduler()
	s.Enqueue(ramp(10, 0.1))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Read(make([]byte, 8))
	assert.ErrorIs(t, err, io.EOF)

	s.Enqueue(ramp(10, 0.1))
	assert.Zero(t, s.ActiveCount())
}
