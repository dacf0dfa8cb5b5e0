// SPDX-License-Identifier: EPL-2.0

// Package engine owns the live hardware stream and its render callback.
//
// The callback runs on the HAL's real-time thread. It reads the active
// sample source and the recording tap through atomic pointers published by
// the control goroutine, so a change takes effect at the next callback and a
// callback always works with one consistent source for its whole duration.
// Nothing on that path allocates, locks, logs or returns an error: failures
// become silence plus a counter.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/hal"
	"github.com/ik5/audbridge/handoff"
)

var (
	ErrAlreadyRunning = errors.New("engine: already running")
	ErrNoDriver       = errors.New("engine: no HAL driver")
)

// TapMode selects which side of the stream a tap copies.
type TapMode int

const (
	// TapOutput copies what the active source rendered.
	TapOutput TapMode = iota
	// TapInput copies hardware input; it falls back to output when the
	// stream has no input channels.
	TapInput
)

func (m TapMode) String() string {
	if m == TapInput {
		return "input"
	}
	return "output"
}

type sourceRef struct {
	src audio.SampleSource
}

type tapRef struct {
	q    *handoff.Queue
	mode TapMode
}

// Engine is the RenderEngine.
type Engine struct {
	driver hal.Driver
	logger *slog.Logger

	// mu serializes Start/Stop; the render callback never takes it.
	mu     sync.Mutex
	stream hal.Stream
	cfg    audio.StreamConfig

	running atomic.Bool
	source  atomic.Pointer[sourceRef]
	tap     atomic.Pointer[tapRef]

	inCallback     atomic.Int32
	callbacks      atomic.Uint64
	frames         atomic.Uint64
	silent         atomic.Uint64
	sourceFailures atomic.Uint64
	panics         atomic.Uint64
	tapOverruns    atomic.Uint64
	renderFaults   atomic.Uint64
	lastFault      atomic.Int32
}

func New(driver hal.Driver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		driver: driver,
		logger: logger.With("component", "engine"),
	}
}

// Start opens and starts the hardware stream.
func (e *Engine) Start(cfg audio.StreamConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		return ErrAlreadyRunning
	}
	if e.driver == nil {
		return ErrNoDriver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	stream, err := e.driver.Open(cfg, hal.Callbacks{
		Render: e.render,
		Fault:  e.fault,
	})
	if err != nil {
		return fmt.Errorf("opening %s stream: %w", e.driver.Name(), err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("starting %s stream: %w", e.driver.Name(), err)
	}

	e.stream = stream
	e.cfg = cfg
	e.running.Store(true)

	e.logger.Info("render engine started",
		"driver", e.driver.Name(),
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frames_per_callback", cfg.FramesPerCallback,
		"input_channels", cfg.InputChannels)

	return nil
}

// Stop stops and closes the stream. No callback runs after it returns.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return nil
	}

	var errs []error
	if err := e.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping stream: %w", err))
	}
	if err := e.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing stream: %w", err))
	}

	e.stream = nil
	e.running.Store(false)

	e.logger.Info("render engine stopped", "callbacks", e.callbacks.Load(), "render_faults", e.renderFaults.Load())

	return errors.Join(errs...)
}

func (e *Engine) Running() bool { return e.running.Load() }

// Config returns the configuration of the running stream.
func (e *Engine) Config() audio.StreamConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetSource publishes src for the next callback. Nil renders silence.
func (e *Engine) SetSource(src audio.SampleSource) {
	if src == nil {
		e.source.Store(nil)
		return
	}
	e.source.Store(&sourceRef{src: src})
}

// Source returns the published source, nil for silence.
func (e *Engine) Source() audio.SampleSource {
	if ref := e.source.Load(); ref != nil {
		return ref.src
	}
	return nil
}

// SetTap attaches q as the recording tap, or detaches it when q is nil.
// A callback already in flight may still push to the previous queue; use
// WaitCallbackBoundary before draining it.
func (e *Engine) SetTap(q *handoff.Queue, mode TapMode) {
	if q == nil {
		e.tap.Store(nil)
		return
	}
	e.tap.Store(&tapRef{q: q, mode: mode})
}

func (e *Engine) Tapped() bool { return e.tap.Load() != nil }

// WaitCallbackBoundary waits until no callback that could have observed the
// previous source or tap is still running. It reports false on timeout.
func (e *Engine) WaitCallbackBoundary(timeout time.Duration) bool {
	if e.inCallback.Load() == 0 {
		return true
	}

	seen := e.callbacks.Load()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if e.inCallback.Load() == 0 || e.callbacks.Load() != seen {
			return true
		}
		time.Sleep(100 * time.Microsecond)
	}
	return false
}

func (e *Engine) render(out, in audio.SampleBuffer) hal.Status {
	e.inCallback.Store(1)
	defer func() {
		e.callbacks.Add(1)
		e.frames.Add(uint64(out.Frames))
		e.inCallback.Store(0)
	}()

	status := e.generate(out)

	// A failed or panicking source still taps its silence so the recording
	// keeps the same length as what was rendered.
	if t := e.tap.Load(); t != nil {
		buf := out
		if t.mode == TapInput && in.NumChannels() > 0 {
			buf = in
		}
		if !t.q.PushPlanar(buf.Channels, buf.Frames) {
			e.tapOverruns.Add(1)
		}
	}

	return status
}

// generate fills out from the active source, or with silence when there is
// none or it fails.
func (e *Engine) generate(out audio.SampleBuffer) (status hal.Status) {
	defer func() {
		if r := recover(); r != nil {
			out.Silence()
			e.panics.Add(1)
			status = hal.StatusPanic
		}
	}()

	ref := e.source.Load()
	if ref == nil {
		out.Silence()
		e.silent.Add(1)
		return hal.StatusOK
	}
	if err := ref.src.GenerateSamples(out); err != nil {
		out.Silence()
		e.sourceFailures.Add(1)
		return hal.StatusSourceFailed
	}
	return hal.StatusOK
}

func (e *Engine) fault(s hal.Status) {
	e.renderFaults.Add(1)
	e.lastFault.Store(int32(s))
}

// Stats is a snapshot of the render counters.
type Stats struct {
	Callbacks      uint64
	Frames         uint64
	Silent         uint64
	SourceFailures uint64
	Panics         uint64
	TapOverruns    uint64
	RenderFaults   uint64
	LastFault      hal.Status
}

func (e *Engine) Stats() Stats {
	return Stats{
		Callbacks:      e.callbacks.Load(),
		Frames:         e.frames.Load(),
		Silent:         e.silent.Load(),
		SourceFailures: e.sourceFailures.Load(),
		Panics:         e.panics.Load(),
		TapOverruns:    e.tapOverruns.Load(),
		RenderFaults:   e.renderFaults.Load(),
		LastFault:      hal.Status(e.lastFault.Load()),
	}
}
