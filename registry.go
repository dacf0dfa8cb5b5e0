// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/formats/aiff"
	"github.com/ik5/audbridge/formats/mp3"
	"github.com/ik5/audbridge/formats/vorbis"
	"github.com/ik5/audbridge/formats/wav"
)

// NewRegistry returns a registry with every bundled playback decoder.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{}, "wave")
	reg.Register("aiff", aiff.Decoder{}, "aif", "aifc")
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{}, "oga", "vorbis")
	return reg
}
