// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE linear PCM files on top of
// github.com/go-audio/wav.
//
// # Decoding
//
// Decoder accepts 8, 16, 24 and 32-bit linear PCM in any channel layout and
// yields an audio.Source of float32 samples in [-1, 1]. Compressed and
// floating point WAV files are rejected with ErrOnlyLinearPCM. Decoder also
// implements audio.Detector so a registry can recognise the RIFF/WAVE magic.
//
//	f, _ := os.Open("take.wav")
//	src, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    return err
//	}
//	defer src.Close() // closes f as well
//
// # Encoding
//
// Encoder is the recording sink. The header is written as soon as the
// encoder is created and every WriteFrames call appends whole frames, so a
// recording can grow for as long as the session lasts:
//
//	enc, err := wav.NewEncoder(f, 44100, 2, 16)
//	...
//	err = enc.WriteFrames(interleaved)
//	...
//	err = enc.Close() // patches the RIFF and data sizes, closes f
//
// Encoder is not safe for concurrent use; the recorder drives it from a
// single goroutine.
package wav
