// SPDX-License-Identifier: EPL-2.0

// Package generator provides live sample sources for the render engine.
//
// Their GenerateSamples methods run on the real-time thread. Parameters that
// a control goroutine may change while the stream runs (frequency, gain) are
// stored atomically and picked up at the next callback.
package generator

import (
	"math"
	"sync/atomic"

	"github.com/ik5/audbridge/audio"
)

// Sine is a phase-continuous sine tone written to every channel.
type Sine struct {
	sampleRate float64
	freq       atomic.Uint64 // float64 bits
	gain       atomic.Uint32 // float32 bits

	// phase is owned by the render thread.
	phase float64
}

// NewSine returns a tone of freq Hz at the given gain (0..1) for a stream
// running at sampleRate.
func NewSine(sampleRate int, freq float64, gain float32) *Sine {
	s := &Sine{sampleRate: float64(sampleRate)}
	s.SetFrequency(freq)
	s.SetGain(gain)
	return s
}

func (s *Sine) SetFrequency(freq float64) {
	s.freq.Store(math.Float64bits(freq))
}

func (s *Sine) Frequency() float64 {
	return math.Float64frombits(s.freq.Load())
}

// SetGain clamps gain to [0, 1].
func (s *Sine) SetGain(gain float32) {
	gain = min(max(gain, 0), 1)
	s.gain.Store(math.Float32bits(gain))
}

func (s *Sine) Gain() float32 {
	return math.Float32frombits(s.gain.Load())
}

func (s *Sine) GenerateSamples(buf audio.SampleBuffer) error {
	if len(buf.Channels) == 0 {
		return nil
	}

	step := s.Frequency() / s.sampleRate
	gain := s.Gain()
	first := buf.Channels[0]

	phase := s.phase
	for f := range buf.Frames {
		first[f] = gain * float32(math.Sin(2*math.Pi*phase))
		phase += step
		if phase >= 1 {
			phase -= math.Floor(phase)
		}
	}
	s.phase = phase

	for _, ch := range buf.Channels[1:] {
		copy(ch[:buf.Frames], first[:buf.Frames])
	}
	return nil
}

// Silence renders zeros. It is the explicit form of having no source.
type Silence struct{}

func (Silence) GenerateSamples(buf audio.SampleBuffer) error {
	buf.Silence()
	return nil
}

var (
	_ audio.SampleSource = (*Sine)(nil)
	_ audio.SampleSource = Silence{}
)
