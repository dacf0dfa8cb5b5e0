// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"

	"github.com/ik5/audbridge/audio"
)

func ExampleSampleBuffer_Interleave() {
	buf := audio.NewSampleBuffer(2, 3)
	for f := range buf.Frames {
		buf.Channels[0][f] = float32(f)
		buf.Channels[1][f] = float32(10 + f)
	}

	out := make([]float32, 6)
	n := buf.Interleave(out)
	fmt.Println(n, out)
	// Output: 6 [0 10 1 11 2 12]
}

func ExampleStreamConfig_Validate() {
	cfg := audio.DefaultStreamConfig()
	fmt.Println(cfg.Validate(), cfg.BlockSamples(), cfg.FrameSize())

	cfg.BitsPerSample = 8
	fmt.Println(cfg.Validate())
	// Output:
	// <nil> 1024 4
	// invalid stream configuration: 8 bits per sample, want 16, 24 or 32
}
