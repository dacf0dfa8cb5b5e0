// SPDX-License-Identifier: EPL-2.0

package audio

// SampleBuffer is a non-owning view over planar channel buffers for a single
// render callback. It must not be retained after the callback returns.
type SampleBuffer struct {
	// Channels holds one slice per channel, each at least Frames long.
	Channels [][]float32
	// Frames is the number of frames requested for this callback.
	Frames int
}

// NewSampleBuffer allocates planar storage for channels × frames.
// Only call it off the real-time path.
func NewSampleBuffer(channels, frames int) SampleBuffer {
	planes := make([][]float32, channels)
	backing := make([]float32, channels*frames)
	for c := range planes {
		planes[c] = backing[c*frames : (c+1)*frames : (c+1)*frames]
	}
	return SampleBuffer{Channels: planes, Frames: frames}
}

func (b SampleBuffer) NumChannels() int { return len(b.Channels) }

// Slice returns a view of the first frames frames.
func (b SampleBuffer) Slice(frames int) SampleBuffer {
	if frames > b.Frames {
		frames = b.Frames
	}
	return SampleBuffer{Channels: b.Channels, Frames: frames}
}

// Silence zeroes every channel.
func (b SampleBuffer) Silence() {
	b.SilenceFrom(0)
}

// SilenceFrom zeroes frames [from, Frames) of every channel.
func (b SampleBuffer) SilenceFrom(from int) {
	if from >= b.Frames {
		return
	}
	for _, ch := range b.Channels {
		clear(ch[from:b.Frames])
	}
}

// CopyFrom copies min(b.Frames, src.Frames) frames channel by channel and
// returns the number of frames copied. Channels missing in src are silenced.
func (b SampleBuffer) CopyFrom(src SampleBuffer) int {
	frames := min(b.Frames, src.Frames)
	for c, ch := range b.Channels {
		if c < len(src.Channels) {
			copy(ch[:frames], src.Channels[c][:frames])
		} else {
			clear(ch[:frames])
		}
	}
	return frames
}

// Interleave writes the frames into dst as interleaved samples and returns
// the number of samples written. dst must hold Frames × NumChannels values.
func (b SampleBuffer) Interleave(dst []float32) int {
	channels := len(b.Channels)
	if channels == 1 {
		return copy(dst, b.Channels[0][:b.Frames])
	}
	for c, ch := range b.Channels {
		for f := range b.Frames {
			dst[f*channels+c] = ch[f]
		}
	}
	return b.Frames * channels
}

// Deinterleave reads interleaved samples from src into the planar channels,
// starting at frame offset. It returns the number of frames read.
func (b SampleBuffer) Deinterleave(src []float32, offset int) int {
	channels := len(b.Channels)
	if channels == 0 {
		return 0
	}
	frames := min(len(src)/channels, b.Frames-offset)
	for c, ch := range b.Channels {
		for f := range frames {
			ch[offset+f] = src[f*channels+c]
		}
	}
	return frames
}
