// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with
// github.com/jfreymuth/oggvorbis.
//
// The decoder keeps the channel layout and sample rate of the stream and
// returns float32 samples in [-1.0, 1.0]. Detect matches the "OggS" page
// capture pattern, so an Ogg file carrying another codec is detected here and
// then rejected by Decode with ErrNotVorbisStream.
package vorbis
