// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"math"
	"sync/atomic"
)

// MockSource is a decoded audio.Source for player and mixer tests.
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	waveform     func(sample int, channel int) float32

	// failAt makes the read that would produce frame failAt return failErr
	// instead, failCount times in a row.
	failAt    int
	failCount int
	failErr   error

	closed atomic.Bool
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
// waveform is a function that generates sample values given sample index and channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		waveform:     waveform,
		failAt:       -1,
	}
}

// NewRampSource creates a source whose value encodes its frame index and
// channel (see RampValue), so order and loss can be checked after a round trip.
func NewRampSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, RampValue)
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		t := float64(sample) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// FailAt makes reads at frame frame fail count times with err before the
// source carries on.
func (m *MockSource) FailAt(frame, count int, err error) *MockSource {
	m.failAt, m.failCount, m.failErr = frame, count, err
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed.Load() }

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)

	if m.failAt >= 0 && m.failCount > 0 && m.generated+framesToWrite > m.failAt {
		if m.generated >= m.failAt {
			m.failCount--
			return 0, m.failErr
		}
		// Stop short of the failing frame.
		framesToWrite = m.failAt - m.generated
	}

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}

// RampValue maps a frame index and channel to a value that survives 16-bit
// quantization distinctly for the first 4096 frames of up to 8 channels.
func RampValue(frame, channel int) float32 {
	v := (frame%4096)*8 + channel
	return float32(v-16384) / 32768
}
