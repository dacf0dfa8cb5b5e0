// SPDX-License-Identifier: EPL-2.0

// Package portaudio drives the default output (or duplex) device through
// github.com/gordonklaus/portaudio using non-interleaved float32 callbacks,
// which map one to one onto audio.SampleBuffer.
package portaudio

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/hal"
)

// Driver implements hal.Driver.
type Driver struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger.With("driver", "portaudio")}
}

func (d *Driver) Name() string { return "portaudio" }

func (d *Driver) Open(cfg audio.StreamConfig, cb hal.Callbacks) (hal.Stream, error) {
	if cb.Render == nil {
		return nil, hal.ErrNoRender
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	s := &stream{cfg: cfg, cb: cb, logger: d.logger}

	var callback any = s.processOutput
	if cfg.InputChannels > 0 {
		callback = s.processDuplex
	}

	st, err := portaudio.OpenDefaultStream(
		cfg.InputChannels,
		cfg.Channels,
		float64(cfg.SampleRate),
		cfg.FramesPerCallback,
		callback,
	)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	s.st = st

	return s, nil
}

type stream struct {
	cfg    audio.StreamConfig
	cb     hal.Callbacks
	st     *portaudio.Stream
	logger *slog.Logger

	running atomic.Bool
	closed  atomic.Bool
}

func (s *stream) Start() error {
	if s.closed.Load() {
		return hal.ErrStreamClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return hal.ErrStreamRunning
	}
	if err := s.st.Start(); err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

func (s *stream) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.st.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	return nil
}

func (s *stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	stopErr := s.Stop()

	if err := s.st.Close(); err != nil {
		s.logger.Error("failed to close audio stream", "error", err)
	}
	if err := portaudio.Terminate(); err != nil {
		s.logger.Error("failed to terminate PortAudio", "error", err)
	}

	return stopErr
}

func (s *stream) processOutput(out [][]float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	s.process(nil, out, flags)
}

func (s *stream) processDuplex(in, out [][]float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	s.process(in, out, flags)
}

func (s *stream) process(in, out [][]float32, flags portaudio.StreamCallbackFlags) {
	if s.cb.Fault != nil {
		if flags&portaudio.OutputUnderflow != 0 {
			s.cb.Fault(hal.StatusUnderflow)
		}
		if flags&portaudio.InputOverflow != 0 {
			s.cb.Fault(hal.StatusOverflow)
		}
	}

	frames := 0
	if len(out) > 0 {
		frames = len(out[0])
	}

	outBuf := audio.SampleBuffer{Channels: out, Frames: frames}
	inBuf := audio.SampleBuffer{Channels: in, Frames: frames}
	if status := s.cb.Render(outBuf, inBuf); status != hal.StatusOK && s.cb.Fault != nil {
		s.cb.Fault(status)
	}
}
