// SPDX-License-Identifier: EPL-2.0

// Package audio holds the types shared by the render path and the file
// sessions.
//
// # Render side
//
// The hardware callback works on planar float32 buffers. SampleBuffer is a
// non-owning view over one callback's channels and SampleSource is the pull
// model the render engine calls into:
//
//	src := audio.SourceFunc(func(buf audio.SampleBuffer) error {
//	    for _, ch := range buf.Channels {
//	        for f := range buf.Frames {
//	            ch[f] = 0.25
//	        }
//	    }
//	    return nil
//	})
//
// Sources run on the hardware thread. They must not block, allocate or
// perform I/O, and they report failure with a sentinel such as
// ErrSourceFailed so the engine can substitute silence.
//
// StreamConfig fixes the rate, channel counts, recording bit depth and
// callback size for the lifetime of a stream. Validate rejects anything the
// drivers cannot open with ErrConfiguration.
//
// # File side
//
// Decoded files are interleaved Source streams read by the player's decoder
// goroutine, never by the callback. Decoders are looked up in a Registry,
// by magic bytes first and by file extension second:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{}, "wave")
//	format, dec, ok := reg.ForPath("take.wav", header)
//
// MonoMixer and Upmixer adapt a file's channel layout to the stream's: many
// channels average down to mono, and mono copies into every channel.
// Sources return io.EOF with the final samples or on the next read.
//
// # Errors
//
// The sentinel errors in this package are shared by every layer above it and
// are meant to be matched with errors.Is.
package audio
