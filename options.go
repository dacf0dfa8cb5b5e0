// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"log/slog"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/engine"
	"github.com/ik5/audbridge/hal"
	"github.com/ik5/audbridge/hal/virtual"
	"github.com/ik5/audbridge/player"
	"github.com/ik5/audbridge/recorder"
)

const (
	// DefaultRecordQueueBlocks is the tap depth in callbacks (~740ms at the
	// default stream config).
	DefaultRecordQueueBlocks = 64
	DefaultPrefillTimeout    = 250 * time.Millisecond
	DefaultWatchInterval     = 10 * time.Millisecond
	DefaultBoundaryTimeout   = 100 * time.Millisecond
)

type options struct {
	driver            hal.Driver
	logger            *slog.Logger
	registry          *audio.Registry
	tapMode           engine.TapMode
	recordQueueBlocks int
	recorder          recorder.Options
	openSink          recorder.SinkOpener
	player            player.Options
	prefillTimeout    time.Duration
	watchInterval     time.Duration
	boundaryTimeout   time.Duration
}

// Option configures a Bridge.
type Option func(*options)

func defaultOptions() options {
	return options{
		recordQueueBlocks: DefaultRecordQueueBlocks,
		prefillTimeout:    DefaultPrefillTimeout,
		watchInterval:     DefaultWatchInterval,
		boundaryTimeout:   DefaultBoundaryTimeout,
	}
}

// WithDriver selects the HAL driver. The default is a clock paced virtual
// driver, which needs no audio hardware.
func WithDriver(d hal.Driver) Option {
	return func(o *options) { o.driver = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry replaces the playback format registry (see NewRegistry).
func WithRegistry(r *audio.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTapMode chooses what a recording captures: the rendered output
// (default) or, on streams opened with input channels, the hardware input.
func WithTapMode(m engine.TapMode) Option {
	return func(o *options) { o.tapMode = m }
}

// WithRecordQueueBlocks sets the tap depth in callbacks. It is rounded up to
// a power of two.
func WithRecordQueueBlocks(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.recordQueueBlocks = n
		}
	}
}

func WithRecorderOptions(ro recorder.Options) Option {
	return func(o *options) { o.recorder = ro }
}

// WithSinkOpener replaces the WAV file writer used by CreateRecordingFile.
func WithSinkOpener(open recorder.SinkOpener) Option {
	return func(o *options) { o.openSink = open }
}

func WithPlayerOptions(po player.Options) Option {
	return func(o *options) { o.player = po }
}

// WithPrefillTimeout bounds how long StartPlayback waits for read-ahead
// before the player is published.
func WithPrefillTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.prefillTimeout = d
		}
	}
}

// WithWatchInterval sets how often the end-of-stream watcher checks playback.
func WithWatchInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.watchInterval = d
		}
	}
}

func (o *options) finish() {
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.driver == nil {
		o.driver = virtual.New(virtual.Options{Clocked: true})
	}
	if o.openSink == nil {
		o.openSink = recorder.OpenWAV
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.recorder.Logger == nil {
		o.recorder.Logger = o.logger
	}
	if o.player.Logger == nil {
		o.player.Logger = o.logger
	}
}
