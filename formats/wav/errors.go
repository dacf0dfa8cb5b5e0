// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile           = errors.New("not a WAV file")
	ErrUnsupportedWavLayout = errors.New("unsupported WAV layout")
	// ErrOnlyLinearPCM is returned for compressed or floating point WAV data.
	ErrOnlyLinearPCM   = errors.New("only linear PCM WAV is supported")
	ErrUnsupportedBits = errors.New("unsupported WAV bit depth")
	ErrEncoderClosed   = errors.New("wav encoder closed")
)
