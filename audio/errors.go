// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrConfiguration reports an invalid stream configuration.
	ErrConfiguration = errors.New("invalid stream configuration")

	// ErrFileCreate reports a recording destination that cannot be written.
	ErrFileCreate = errors.New("cannot create recording file")
	// ErrFileOpen reports a playback file that cannot be opened.
	ErrFileOpen = errors.New("cannot open playback file")
	// ErrUnsupportedFormat reports a playback file whose container, layout or
	// rate cannot be played on the running stream.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrRecordingIO reports a failed write to the recording file.
	ErrRecordingIO = errors.New("recording I/O error")
	// ErrIncompleteRecording reports a recording that lost frames, either to
	// queue overruns or to a drain timeout.
	ErrIncompleteRecording = errors.New("incomplete recording")
	// ErrDecode reports a mid-stream decode failure during playback.
	ErrDecode = errors.New("decode error")

	// ErrSourceFailed is the sentinel a SampleSource returns when it could not
	// fill a buffer.
	ErrSourceFailed = errors.New("sample source failed")
)
