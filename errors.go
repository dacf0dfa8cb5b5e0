// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"errors"

	"github.com/ik5/audbridge/audio"
)

// Control-path errors returned by Bridge operations.
var (
	ErrNoRecordingFile    = errors.New("audbridge: no recording file")
	ErrNoPlaybackFile     = errors.New("audbridge: no playback file")
	ErrBusy               = errors.New("audbridge: session in use")
	ErrClosed             = errors.New("audbridge: bridge closed")
	ErrAlreadyInitialized = errors.New("audbridge: shared bridge already initialized")
	ErrNotInitialized     = errors.New("audbridge: shared bridge not initialized")
)

// The audio error taxonomy, re-exported so callers only need this package.
var (
	ErrConfiguration       = audio.ErrConfiguration
	ErrFileCreate          = audio.ErrFileCreate
	ErrFileOpen            = audio.ErrFileOpen
	ErrUnsupportedFormat   = audio.ErrUnsupportedFormat
	ErrRecordingIO         = audio.ErrRecordingIO
	ErrIncompleteRecording = audio.ErrIncompleteRecording
	ErrDecode              = audio.ErrDecode
)
