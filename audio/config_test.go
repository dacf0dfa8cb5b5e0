// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"
)

func TestStreamConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*StreamConfig)
		valid  bool
	}{
		{"default", func(*StreamConfig) {}, true},
		{"8 kHz mono 24-bit", func(c *StreamConfig) { c.SampleRate, c.Channels, c.BitsPerSample = 8000, 1, 24 }, true},
		{"capture", func(c *StreamConfig) { c.InputChannels = 2 }, true},
		{"rate too low", func(c *StreamConfig) { c.SampleRate = 7999 }, false},
		{"rate too high", func(c *StreamConfig) { c.SampleRate = 384000 }, false},
		{"no channels", func(c *StreamConfig) { c.Channels = 0 }, false},
		{"too many channels", func(c *StreamConfig) { c.Channels = MaxChannels + 1 }, false},
		{"negative input", func(c *StreamConfig) { c.InputChannels = -1 }, false},
		{"no frames", func(c *StreamConfig) { c.FramesPerCallback = 0 }, false},
		{"huge callback", func(c *StreamConfig) { c.FramesPerCallback = MaxFramesPerCallback + 1 }, false},
		{"8-bit", func(c *StreamConfig) { c.BitsPerSample = 8 }, false},
		{"12-bit", func(c *StreamConfig) { c.BitsPerSample = 12 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultStreamConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrConfiguration) {
				t.Errorf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestStreamConfig_Sizes(t *testing.T) {
	t.Parallel()

	cfg := StreamConfig{SampleRate: 48000, Channels: 2, BitsPerSample: 24, FramesPerCallback: 256}
	if got := cfg.FrameSize(); got != 6 {
		t.Errorf("FrameSize() = %d, want 6", got)
	}
	if got := cfg.BlockSamples(); got != 512 {
		t.Errorf("BlockSamples() = %d, want 512", got)
	}
}

func TestSourceFunc(t *testing.T) {
	t.Parallel()

	var calls int
	var src SampleSource = SourceFunc(func(buf SampleBuffer) error {
		calls++
		buf.Silence()
		return ErrSourceFailed
	})

	if err := src.GenerateSamples(NewSampleBuffer(1, 4)); !errors.Is(err, ErrSourceFailed) || calls != 1 {
		t.Errorf("GenerateSamples() = %v after %d calls", err, calls)
	}
}
