// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
)

// fakeSource generates frames from a waveform function.
type fakeSource struct {
	sampleRate int
	channels   int
	frames     int // total frames
	pos        int
	wave       func(frame, channel int) float32
	closed     bool
}

func newFakeSource(sampleRate, channels, frames int, wave func(frame, channel int) float32) *fakeSource {
	return &fakeSource{sampleRate: sampleRate, channels: channels, frames: frames, wave: wave}
}

func constant(v float32) func(int, int) float32 {
	return func(int, int) float32 { return v }
}

// byChannel returns channel c as 0.1*(c+1).
func byChannel(_, c int) float32 { return 0.1 * float32(c+1) }

func (s *fakeSource) SampleRate() int { return s.sampleRate }
func (s *fakeSource) Channels() int   { return s.channels }
func (s *fakeSource) BufSize() int    { return 256 }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.wave(s.pos+f, c)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}

type fakeDecoder struct {
	magic string
}

func (d *fakeDecoder) Decode(io.Reader) (Source, error) {
	return newFakeSource(44100, 2, 10, constant(0)), nil
}

func (d *fakeDecoder) Detect(header []byte) bool {
	return d.magic != "" && len(header) >= len(d.magic) && string(header[:len(d.magic)]) == d.magic
}

// plainDecoder cannot detect anything.
type plainDecoder struct{}

func (plainDecoder) Decode(io.Reader) (Source, error) { return nil, io.ErrUnexpectedEOF }
