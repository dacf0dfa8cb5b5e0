// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audbridge/utils"
)

// Encoder appends interleaved float32 frames to a linear PCM WAV file. The
// header is written on creation and patched with the final sizes by Close,
// so a file closed at any point is a valid WAV.
type Encoder struct {
	w        io.WriteSeeker
	enc      *wav.Encoder
	channels int
	bitDepth int
	frames   int64
	buf      *goaudio.IntBuffer
	closed   bool
}

// NewEncoder writes the WAV header to w. When w is an io.Closer it is closed
// by Close.
func NewEncoder(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*Encoder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBits, bitDepth)
	}
	if channels < 1 || sampleRate < 1 {
		return nil, ErrUnsupportedWavLayout
	}

	e := &Encoder{
		w:        w,
		enc:      wav.NewEncoder(w, sampleRate, bitDepth, channels, wavAudioFormatPCM),
		channels: channels,
		bitDepth: bitDepth,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}

	// An empty write emits the RIFF, fmt and data headers.
	if err := e.enc.Write(e.buf); err != nil {
		return nil, fmt.Errorf("writing wav header: %w", err)
	}

	return e, nil
}

func (e *Encoder) Channels() int { return e.channels }
func (e *Encoder) BitDepth() int { return e.bitDepth }

// Frames is the number of frames appended so far.
func (e *Encoder) Frames() int64 { return e.frames }

// WriteFrames appends whole frames from interleaved samples. A trailing
// partial frame is ignored.
func (e *Encoder) WriteFrames(samples []float32) error {
	if e.closed {
		return ErrEncoderClosed
	}

	frames := len(samples) / e.channels
	if frames == 0 {
		return nil
	}
	n := frames * e.channels

	if cap(e.buf.Data) < n {
		e.buf.Data = make([]int, n)
	}
	e.buf.Data = e.buf.Data[:n]
	utils.FloatsToPCM(e.buf.Data, samples[:n], e.bitDepth)

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("writing wav frames: %w", err)
	}
	e.frames += int64(frames)

	return nil
}

// Close patches the header sizes and closes the underlying writer when it is
// an io.Closer. It is safe to call more than once.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := e.enc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("finalizing wav header: %w", err))
	}
	if c, ok := e.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing wav output: %w", err))
		}
	}

	return errors.Join(errs...)
}
