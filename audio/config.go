// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Limits accepted by StreamConfig.Validate.
const (
	MinSampleRate        = 8000
	MaxSampleRate        = 192000
	MaxChannels          = 8
	MaxFramesPerCallback = 8192
)

// StreamConfig describes the hardware stream. It is fixed once the stream is
// running; changing it needs a full stop and restart.
type StreamConfig struct {
	SampleRate int
	Channels   int
	// BitsPerSample is the linear PCM depth used for recordings (16, 24 or 32).
	// The render path itself always works in float32.
	BitsPerSample int
	// FramesPerCallback is the preferred (and maximum) callback size.
	FramesPerCallback int
	// InputChannels is non-zero when the hardware input is opened as well.
	InputChannels int
}

// DefaultStreamConfig is CD-quality stereo with ~11.6ms callbacks.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate:        44100,
		Channels:          2,
		BitsPerSample:     16,
		FramesPerCallback: 512,
	}
}

func (c StreamConfig) Validate() error {
	switch {
	case c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d out of range [%d, %d]", ErrConfiguration, c.SampleRate, MinSampleRate, MaxSampleRate)
	case c.Channels < 1 || c.Channels > MaxChannels:
		return fmt.Errorf("%w: channel count %d out of range [1, %d]", ErrConfiguration, c.Channels, MaxChannels)
	case c.InputChannels < 0 || c.InputChannels > MaxChannels:
		return fmt.Errorf("%w: input channel count %d out of range [0, %d]", ErrConfiguration, c.InputChannels, MaxChannels)
	case c.FramesPerCallback < 1 || c.FramesPerCallback > MaxFramesPerCallback:
		return fmt.Errorf("%w: frames per callback %d out of range [1, %d]", ErrConfiguration, c.FramesPerCallback, MaxFramesPerCallback)
	}

	switch c.BitsPerSample {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d bits per sample, want 16, 24 or 32", ErrConfiguration, c.BitsPerSample)
	}

	return nil
}

// FrameSize is the size in bytes of one recorded PCM frame.
func (c StreamConfig) FrameSize() int {
	return c.Channels * c.BitsPerSample / 8
}

// BlockSamples is the number of interleaved samples in one full callback.
func (c StreamConfig) BlockSamples() int {
	return c.Channels * c.FramesPerCallback
}
