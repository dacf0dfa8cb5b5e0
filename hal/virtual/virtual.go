// SPDX-License-Identifier: EPL-2.0

// Package virtual is a software audio HAL. Streams either run on their own
// clock-paced goroutine (headless operation) or are pumped by the caller,
// which makes render callbacks deterministic in tests.
package virtual

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/hal"
)

// Options tune a Driver.
type Options struct {
	// Clocked streams render on a goroutine paced at real time.
	Clocked bool
	// Input fills the input buffer before each callback when the stream was
	// opened with input channels. Nil input is silence.
	Input func(in audio.SampleBuffer)
	// Output observes every rendered buffer after the callback returns.
	Output func(out audio.SampleBuffer)
}

// Driver implements hal.Driver.
type Driver struct {
	opts Options

	mu      sync.Mutex
	opened  int
	current *Stream
}

func New(opts Options) *Driver {
	return &Driver{opts: opts}
}

func (d *Driver) Name() string { return "virtual" }

func (d *Driver) Open(cfg audio.StreamConfig, cb hal.Callbacks) (hal.Stream, error) {
	if cb.Render == nil {
		return nil, hal.ErrNoRender
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Stream{
		driver: d,
		cfg:    cfg,
		cb:     cb,
		out:    audio.NewSampleBuffer(cfg.Channels, cfg.FramesPerCallback),
	}
	if cfg.InputChannels > 0 {
		s.in = audio.NewSampleBuffer(cfg.InputChannels, cfg.FramesPerCallback)
	}

	d.mu.Lock()
	d.opened++
	d.current = s
	d.mu.Unlock()

	return s, nil
}

// Opened counts every Open call on this driver.
func (d *Driver) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Current returns the most recently opened stream that is still open.
func (d *Driver) Current() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Stream implements hal.Stream.
type Stream struct {
	driver *Driver
	cfg    audio.StreamConfig
	cb     hal.Callbacks

	// cbMu is held for the duration of a callback so Stop can wait for one
	// in flight, the way hardware backends do.
	cbMu    sync.Mutex
	running atomic.Bool
	closed  atomic.Bool
	out     audio.SampleBuffer
	in      audio.SampleBuffer

	callbacks atomic.Uint64
	quit      chan struct{}
	done      chan struct{}
}

func (s *Stream) Config() audio.StreamConfig { return s.cfg }

func (s *Stream) Start() error {
	if s.closed.Load() {
		return hal.ErrStreamClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return hal.ErrStreamRunning
	}

	if s.driver.opts.Clocked {
		s.quit = make(chan struct{})
		s.done = make(chan struct{})
		go s.clock(s.quit, s.done)
	}
	return nil
}

func (s *Stream) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.quit != nil {
		close(s.quit)
		<-s.done
		s.quit, s.done = nil, nil
	}

	// Wait out a callback that is still running.
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	return nil
}

func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = s.Stop()

	s.driver.mu.Lock()
	if s.driver.current == s {
		s.driver.current = nil
	}
	s.driver.mu.Unlock()
	return nil
}

func (s *Stream) Running() bool { return s.running.Load() }

// Callbacks counts rendered periods.
func (s *Stream) Callbacks() uint64 { return s.callbacks.Load() }

// Pump renders frames frames in FramesPerCallback sized periods (the last
// one may be shorter) on the calling goroutine. It returns the number of
// callbacks made, zero when the stream is not running.
func (s *Stream) Pump(frames int) int {
	calls := 0
	for frames > 0 && s.running.Load() {
		n := min(frames, s.cfg.FramesPerCallback)
		s.period(n)
		frames -= n
		calls++
	}
	return calls
}

// InjectFault delivers a host-level fault as a backend would.
func (s *Stream) InjectFault(status hal.Status) {
	if s.cb.Fault != nil {
		s.cb.Fault(status)
	}
}

func (s *Stream) period(frames int) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()

	out := s.out.Slice(frames)
	in := s.in.Slice(frames)
	if in.NumChannels() > 0 {
		if s.driver.opts.Input != nil {
			s.driver.opts.Input(in)
		} else {
			in.Silence()
		}
	}

	status := s.cb.Render(out, in)
	s.callbacks.Add(1)
	if status != hal.StatusOK && s.cb.Fault != nil {
		s.cb.Fault(status)
	}

	if s.driver.opts.Output != nil {
		s.driver.opts.Output(out)
	}
}

func (s *Stream) clock(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(s.cfg.FramesPerCallback) * time.Second / time.Duration(s.cfg.SampleRate)
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tick.C:
			s.period(s.cfg.FramesPerCallback)
		}
	}
}
