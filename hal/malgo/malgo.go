// SPDX-License-Identifier: EPL-2.0

// Package malgo drives the default playback (or duplex) device through
// miniaudio using github.com/gen2brain/malgo.
package malgo

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/hal"
)

const bytesPerSample = 4 // float32

// Driver implements hal.Driver on top of miniaudio.
type Driver struct {
	backends []malgo.Backend
	logger   *slog.Logger
}

// New returns a driver. With no backends the platform default is used.
func New(logger *slog.Logger, backends ...malgo.Backend) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if len(backends) == 0 {
		backends = []malgo.Backend{platformBackend()}
	}
	return &Driver{backends: backends, logger: logger.With("driver", "malgo")}
}

func (d *Driver) Name() string { return "malgo" }

func (d *Driver) Open(cfg audio.StreamConfig, cb hal.Callbacks) (hal.Stream, error) {
	if cb.Render == nil {
		return nil, hal.ErrNoRender
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(d.backends, malgo.ContextConfig{}, func(message string) {
		d.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	s := &stream{
		cfg:    cfg,
		cb:     cb,
		ctx:    ctx,
		out:    audio.NewSampleBuffer(cfg.Channels, cfg.FramesPerCallback),
		logger: d.logger,
	}

	deviceType := malgo.Playback
	if cfg.InputChannels > 0 {
		deviceType = malgo.Duplex
		s.in = audio.NewSampleBuffer(cfg.InputChannels, cfg.FramesPerCallback)
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	if deviceType == malgo.Duplex {
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = uint32(cfg.InputChannels)
	}
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FramesPerCallback)

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("initializing playback device: %w", err)
	}
	s.device = device

	return s, nil
}

type stream struct {
	cfg    audio.StreamConfig
	cb     hal.Callbacks
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	logger *slog.Logger

	out audio.SampleBuffer
	in  audio.SampleBuffer

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
	if err := s.device.Start(); err != nil {
		s.running.Store(false)
		return fmt.Errorf("starting device: %w", err)
	}
	return nil
}

func (s *stream) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("stopping device: %w", err)
	}
	return nil
}

func (s *stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	stopErr := s.Stop()

	s.device.Uninit()
	if err := s.ctx.Uninit(); err != nil {
		s.logger.Error("failed to uninit audio context", "error", err)
	}
	s.ctx.Free()

	return stopErr
}

// onData runs on miniaudio's audio thread. A host period larger than the
// configured callback size is rendered in several passes.
func (s *stream) onData(pOutput, pInput []byte, framecount uint32) {
	outCh := s.cfg.Channels
	inCh := s.in.NumChannels()
	total := int(framecount)

	for off := 0; off < total; {
		n := min(total-off, s.cfg.FramesPerCallback)
		out := s.out.Slice(n)
		in := s.in.Slice(n)

		if inCh > 0 && len(pInput) >= (off+n)*inCh*bytesPerSample {
			src := pInput[off*inCh*bytesPerSample:]
			for c, ch := range in.Channels {
				for f := range n {
					i := (f*inCh + c) * bytesPerSample
					ch[f] = math.Float32frombits(binary.LittleEndian.Uint32(src[i:]))
				}
			}
		} else {
			in.Silence()
		}

		if status := s.cb.Render(out, in); status != hal.StatusOK && s.cb.Fault != nil {
			s.cb.Fault(status)
		}

		dst := pOutput[off*outCh*bytesPerSample:]
		for c, ch := range out.Channels {
			for f := range n {
				i := (f*outCh + c) * bytesPerSample
				binary.LittleEndian.PutUint32(dst[i:], math.Float32bits(ch[f]))
			}
		}

		off += n
	}
}

func (s *stream) onStop() {
	// Stop callbacks also fire on a requested stop; only report the others.
	if s.running.Load() && s.cb.Fault != nil {
		s.cb.Fault(hal.StatusDeviceStopped)
	}
}

func platformBackend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}
