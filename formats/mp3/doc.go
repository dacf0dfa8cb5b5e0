// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III streams with
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so every Source from this package
// reports two channels regardless of the file; a mono stream downmixes it
// with audio.MonoMixer. Detect recognises an ID3v2 tag or a Layer III frame
// sync at the start of the file.
package mp3
