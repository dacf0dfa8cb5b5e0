// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds sources and helpers shared by the tests of the
// render engine, the recorder, the player and the bridge.
package audiotest

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/formats/wav"
)

// ErrInjected is the failure injected by test sources.
var ErrInjected = errors.New("audiotest: injected failure")

// ConstSource fills every channel with Value and counts its callbacks.
type ConstSource struct {
	Value float32
	calls atomic.Uint64
}

func (s *ConstSource) GenerateSamples(buf audio.SampleBuffer) error {
	s.calls.Add(1)
	for _, ch := range buf.Channels {
		for f := range buf.Frames {
			ch[f] = s.Value
		}
	}
	return nil
}

func (s *ConstSource) Calls() uint64 { return s.calls.Load() }

// RampSampleSource renders RampValue for an ever increasing frame counter.
type RampSampleSource struct {
	frame int
}

func (s *RampSampleSource) GenerateSamples(buf audio.SampleBuffer) error {
	for c, ch := range buf.Channels {
		for f := range buf.Frames {
			ch[f] = RampValue(s.frame+f, c)
		}
	}
	s.frame += buf.Frames
	return nil
}

// FailingSource returns ErrInjected after writing garbage to the buffer.
type FailingSource struct{}

func (FailingSource) GenerateSamples(buf audio.SampleBuffer) error {
	for _, ch := range buf.Channels {
		for f := range buf.Frames {
			ch[f] = 0.75
		}
	}
	return ErrInjected
}

// PanickingSource panics on every callback.
type PanickingSource struct{}

func (PanickingSource) GenerateSamples(audio.SampleBuffer) error {
	panic("audiotest: source panic")
}

// WriteWAV writes frames of RampValue at the given layout to a temporary
// WAV file and returns its path.
func WriteWAV(tb testing.TB, sampleRate, channels, bitDepth, frames int) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("creating fixture: %v", err)
	}

	enc, err := wav.NewEncoder(f, sampleRate, channels, bitDepth)
	if err != nil {
		tb.Fatalf("creating encoder: %v", err)
	}

	block := make([]float32, 0, 256*channels)
	for frame := 0; frame < frames; {
		block = block[:0]
		n := min(256, frames-frame)
		for i := range n {
			for c := range channels {
				block = append(block, RampValue(frame+i, c))
			}
		}
		if err := enc.WriteFrames(block); err != nil {
			tb.Fatalf("writing fixture: %v", err)
		}
		frame += n
	}

	if err := enc.Close(); err != nil {
		tb.Fatalf("closing fixture: %v", err)
	}
	return path
}

// Near reports whether a and b differ by at most two 16-bit steps.
func Near(a, b float32) bool {
	d := a - b
	return d <= 2.0/32768 && d >= -2.0/32768
}
