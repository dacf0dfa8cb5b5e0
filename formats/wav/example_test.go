// SPDX-License-Identifier: EPL-2.0

package wav_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/audbridge/formats/wav"
)

// Example_roundTrip records a few frames and reads them back.
func Example_roundTrip() {
	dir, err := os.MkdirTemp("", "wav-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "take.wav")

	f, err := os.Create(path)
	if err != nil {
		fmt.Println(err)
		return
	}

	enc, err := wav.NewEncoder(f, 8000, 2, 16)
	if err != nil {
		fmt.Println(err)
		return
	}
	_ = enc.WriteFrames([]float32{0.5, -0.5, 0.25, -0.25})
	fmt.Printf("Wrote %d frames\n", enc.Frames())
	if err := enc.Close(); err != nil {
		fmt.Println(err)
		return
	}

	r, err := os.Open(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	src, err := wav.Decoder{}.Decode(r)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer src.Close()

	buf := make([]float32, 8)
	n, _ := src.ReadSamples(buf)
	fmt.Printf("%d Hz, %d channels, %d samples\n", src.SampleRate(), src.Channels(), n)
	// Output:
	// Wrote 2 frames
	// 8000 Hz, 2 channels, 4 samples
}
