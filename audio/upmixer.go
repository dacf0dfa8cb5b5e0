// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Upmixer copies a mono Source into every channel of a wider stream.
type Upmixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewUpmixer(src Source, channels int) (*Upmixer, error) {
	if src.Channels() != 1 {
		return nil, fmt.Errorf("%w: upmixing needs a mono source, got %d channels", ErrUnsupportedFormat, src.Channels())
	}
	return &Upmixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, max(src.BufSize(), 1024)),
	}, nil
}

func (u *Upmixer) SampleRate() int { return u.src.SampleRate() }
func (u *Upmixer) Channels() int   { return u.channels }
func (u *Upmixer) BufSize() int    { return u.src.BufSize() * u.channels }
func (u *Upmixer) Close() error    { return u.src.Close() }

func (u *Upmixer) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / u.channels
	if frames == 0 {
		if len(dst) > 0 {
			return 0, ErrInvalidDstSize
		}
		return 0, nil
	}

	if cap(u.tmp) < frames {
		u.tmp = make([]float32, frames)
	}
	u.tmp = u.tmp[:frames]

	n, err := u.src.ReadSamples(u.tmp)
	for f, v := range u.tmp[:n] {
		for c := range u.channels {
			dst[f*u.channels+c] = v
		}
	}

	return n * u.channels, err
}
