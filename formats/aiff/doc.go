// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding for
// playback sessions.
//
// This package uses github.com/go-audio/aiff to decode AIFF files. AIFF is
// similar to WAV but stores big endian samples and an 80-bit float sample
// rate; the decoder hides those differences and yields float32 samples in
// [-1.0, 1.0].
//
// # Supported Formats
//
//   - Linear PCM at 8, 16, 24 or 32 bits
//   - Any channel count and sample rate
//
// Compressed AIFF-C payloads are recognised by Detect but fail to decode.
//
// # Decoding
//
//	f, _ := os.Open("take.aiff")
//	src, err := aiff.Decoder{}.Decode(f)
//	if errors.Is(err, aiff.ErrNotAiffFile) {
//	    // not an AIFF file
//	}
//	defer src.Close() // closes f as well
//
// The player rejects a file whose sample rate differs from the running
// stream; nothing here converts rates.
package aiff
