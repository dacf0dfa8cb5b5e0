// SPDX-License-Identifier: EPL-2.0

// Package hal is the narrow contract between the render engine and an
// audio hardware abstraction layer.
//
// A Driver opens a Stream for a StreamConfig. Once started, the stream calls
// Callbacks.Render on its own real-time thread for every hardware period,
// passing planar output (and, when InputChannels > 0, input) buffers. The
// value Render returns is handed back to the host; drivers report host-level
// problems (a non-zero render status, device underflow, an unexpected device
// stop) through Callbacks.Fault. Neither callback may block or allocate.
//
// Implementations live in subpackages: virtual (software clock, used by
// tests and headless runs), malgo (miniaudio) and portaudio.
package hal

import (
	"errors"

	"github.com/ik5/audbridge/audio"
)

// Status is the result of one render callback, or a host-level fault code.
type Status int32

const (
	StatusOK Status = iota
	// StatusSourceFailed means the sample source failed and silence was rendered.
	StatusSourceFailed
	// StatusPanic means the render path recovered from a panic.
	StatusPanic
	// StatusUnderflow means the host reported an output underflow.
	StatusUnderflow
	// StatusOverflow means the host reported an input overflow.
	StatusOverflow
	// StatusDeviceStopped means the device stopped without being asked to.
	StatusDeviceStopped
	// StatusOversized means the host asked for more frames than configured.
	StatusOversized
)

var statusNames = [...]string{
	StatusOK:            "ok",
	StatusSourceFailed:  "source failed",
	StatusPanic:         "panic",
	StatusUnderflow:     "output underflow",
	StatusOverflow:      "input overflow",
	StatusDeviceStopped: "device stopped",
	StatusOversized:     "oversized request",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// RenderFunc fills out for one period. in is empty unless input was opened.
type RenderFunc func(out, in audio.SampleBuffer) Status

// Callbacks mirrors the per-device callback set hardware libraries expose.
type Callbacks struct {
	Render RenderFunc
	Fault  func(Status)
}

// Stream is an opened hardware stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Driver opens streams on one backend.
type Driver interface {
	Name() string
	Open(cfg audio.StreamConfig, cb Callbacks) (Stream, error)
}

var (
	ErrNoRender      = errors.New("hal: render callback is required")
	ErrStreamClosed  = errors.New("hal: stream closed")
	ErrStreamRunning = errors.New("hal: stream already running")
)
