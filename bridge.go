// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/engine"
	"github.com/ik5/audbridge/handoff"
	"github.com/ik5/audbridge/player"
	"github.com/ik5/audbridge/recorder"
)

// Bridge is the single coordination point between control code, the render
// engine and the file sessions. Every method is safe for concurrent use; they
// are serialized by one control mutex that the render path never takes.
type Bridge struct {
	cfg    audio.StreamConfig
	opts   options
	logger *slog.Logger
	engine *engine.Engine

	state atomic.Int32

	mu      sync.Mutex
	closed  bool
	started bool // Start was called; playback alone does not set it
	prior   audio.SampleSource

	recSession *recorder.Session // created, not recording yet
	rec        *recorder.Recorder
	recErrSeen bool

	playSession *player.Session // opened, not playing yet
	playback    *player.Player
	watchQuit   chan struct{}
	watchers    sync.WaitGroup

	pending []error
}

// New returns an idle bridge for a stream running with cfg. The config is
// validated when the stream first starts.
func New(cfg audio.StreamConfig, opts ...Option) *Bridge {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.finish()

	return &Bridge{
		cfg:    cfg,
		opts:   o,
		logger: o.logger.With("component", "bridge"),
		engine: engine.New(o.driver, o.logger),
	}
}

// Config returns the stream config the bridge was created with.
func (b *Bridge) Config() audio.StreamConfig { return b.cfg }

// State is a lock-free snapshot of the state machine.
func (b *Bridge) State() State { return State(b.state.Load()) }

// IsPlaying is true in Playing and PlayingAndRecording. It never blocks.
func (b *Bridge) IsPlaying() bool { return b.State().IsPlaying() }

// SetSampleSource publishes src to the render engine; nil means silence.
// While a file is playing src is only remembered and takes over when
// playback stops.
func (b *Bridge) SetSampleSource(src audio.SampleSource) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prior = src
	if b.playback == nil {
		b.engine.SetSource(src)
	}
}

// SampleSource returns the live source set with SetSampleSource.
func (b *Bridge) SampleSource() audio.SampleSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prior
}

// Start opens the hardware stream. It is a no-op when already playing.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.ensureEngine(); err != nil {
		return err
	}
	b.started = true
	b.settle()
	return nil
}

// Stop returns to Idle from any state: the stream stops, recording and
// playback end and every open file session is closed. Frames still queued
// for the recording are discarded and reported by the next Poll.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopLocked()
}

func (b *Bridge) stopLocked() error {
	var errs []error

	if b.engine.Running() {
		if err := b.engine.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	b.engine.SetTap(nil, b.opts.tapMode)

	if b.rec != nil {
		if err := b.rec.Abort(); err != nil {
			b.pending = append(b.pending, err)
		}
		b.rec = nil
	}
	if b.recSession != nil {
		if err := b.recSession.Close(); err != nil {
			errs = append(errs, err)
		}
		b.recSession = nil
	}

	if b.playback != nil {
		if err := b.detachPlayback(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.playSession != nil {
		if err := b.playSession.Close(); err != nil {
			errs = append(errs, err)
		}
		b.playSession = nil
	}

	b.started = false
	b.settle()

	return errors.Join(errs...)
}

// CreateRecordingFile opens a WAV file for the next recording. location is a
// path or a file:// URL. An idle session created earlier is replaced.
func (b *Bridge) CreateRecordingFile(location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.rec != nil {
		return ErrBusy
	}

	path, err := localPath(location)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrFileCreate, err)
	}

	sess, err := recorder.CreateWith(path, b.recordConfig(), b.opts.openSink)
	if err != nil {
		return err
	}

	if b.recSession != nil {
		if err := b.recSession.Close(); err != nil {
			b.logger.Warn("closing replaced recording file", "path", b.recSession.Path(), "error", err)
		}
	}
	b.recSession = sess

	b.logger.Info("recording file created", "path", path, "session", sess.ID())
	return nil
}

// recordConfig is the stream config with the channel count of the tapped side.
func (b *Bridge) recordConfig() audio.StreamConfig {
	cfg := b.cfg
	if b.opts.tapMode == engine.TapInput && cfg.InputChannels > 0 {
		cfg.Channels = cfg.InputChannels
	}
	return cfg
}

// StartRecord attaches the recording tap and starts the writer. The stream
// starts if it was idle. It is a no-op while already recording.
func (b *Bridge) StartRecord() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.rec != nil {
		return nil
	}
	if b.recSession == nil {
		return ErrNoRecordingFile
	}

	cfg := b.recSession.Config()
	q, err := handoff.New(handoff.CapacityFor(b.opts.recordQueueBlocks), cfg.BlockSamples())
	if err != nil {
		return fmt.Errorf("creating recording queue: %w", err)
	}
	q.SetChannels(cfg.Channels)

	if err := b.ensureEngine(); err != nil {
		return err
	}

	b.rec = recorder.Start(b.recSession, q, b.opts.recorder)
	b.recSession = nil
	b.recErrSeen = false
	b.engine.SetTap(q, b.opts.tapMode)

	b.settle()
	return nil
}

// StopRecord detaches the tap, drains what is queued and finalizes the file.
// It returns ErrIncompleteRecording when frames were lost or the drain timed
// out, and ErrRecordingIO when the file could not be written.
func (b *Bridge) StopRecord() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rec == nil {
		return nil
	}

	b.engine.SetTap(nil, b.opts.tapMode)
	if !b.engine.WaitCallbackBoundary(b.opts.boundaryTimeout) {
		b.logger.Warn("render callback did not return in time", "timeout", b.opts.boundaryTimeout)
	}

	err := b.rec.Stop()
	b.rec = nil

	b.settle()
	return err
}

// SetPlaybackURL opens the file to play next. location is a path or a
// file:// URL. The file must match the stream's sample rate.
func (b *Bridge) SetPlaybackURL(location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.playback != nil {
		return ErrBusy
	}

	path, err := localPath(location)
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrFileOpen, err)
	}

	sess, err := player.Open(path, b.cfg, b.opts.registry)
	if err != nil {
		return err
	}

	if b.playSession != nil {
		if err := b.playSession.Close(); err != nil {
			b.logger.Warn("closing replaced playback file", "path", b.playSession.Path(), "error", err)
		}
	}
	b.playSession = sess

	b.logger.Info("playback file opened",
		"path", path,
		"format", sess.Format(),
		"file_channels", sess.FileChannels(),
		"session", sess.ID())
	return nil
}

// StartPlayback publishes the opened file as the active source, starting the
// stream if it was idle. Playback stops by itself at the end of the file.
func (b *Bridge) StartPlayback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.playback != nil {
		return nil
	}
	if b.playSession == nil {
		return ErrNoPlaybackFile
	}

	if err := b.ensureEngine(); err != nil {
		return err
	}

	p, err := player.New(b.playSession, b.cfg, b.opts.player)
	if err != nil {
		b.settle()
		return err
	}

	p.Start()
	if !p.WaitReady(b.opts.prefillTimeout) {
		b.logger.Warn("playback read-ahead not ready", "timeout", b.opts.prefillTimeout)
	}

	b.playSession = nil
	b.playback = p
	b.engine.SetSource(p)

	quit := make(chan struct{})
	b.watchQuit = quit
	b.watchers.Add(1)
	go b.watch(p, quit)

	b.settle()
	return nil
}

// StopPlayback restores the prior source (or silence) and closes the file.
// The stream stops too when only playback was keeping it running.
func (b *Bridge) StopPlayback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playback == nil {
		return nil
	}

	err := b.detachPlayback()
	b.settle()
	return err
}

func (b *Bridge) detachPlayback() error {
	p := b.playback

	close(b.watchQuit)
	b.watchQuit = nil
	b.playback = nil

	b.engine.SetSource(b.prior)
	b.engine.WaitCallbackBoundary(b.opts.boundaryTimeout)

	if err := p.TakeErr(); err != nil {
		b.pending = append(b.pending, err)
	}
	return p.Stop()
}

func (b *Bridge) watch(p *player.Player, quit <-chan struct{}) {
	defer b.watchers.Done()

	tick := time.NewTicker(b.opts.watchInterval)
	defer tick.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tick.C:
			if p.EndOfStream() {
				b.endOfStream(p)
				return
			}
		}
	}
}

func (b *Bridge) endOfStream(p *player.Player) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playback != p {
		return
	}

	st := p.Stats()
	b.logger.Info("playback reached end of stream",
		"path", p.Session().Path(),
		"frames", st.FramesRendered,
		"underruns", st.Underruns)

	if err := b.detachPlayback(); err != nil {
		b.pending = append(b.pending, err)
	}
	b.settle()
}

// Poll returns and clears the errors raised in the background since the
// last call: decode errors, recording faults and discarded frames.
func (b *Bridge) Poll() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playback != nil {
		if err := b.playback.TakeErr(); err != nil {
			b.pending = append(b.pending, err)
		}
	}
	if b.rec != nil && !b.recErrSeen {
		if err := b.rec.Err(); err != nil {
			b.pending = append(b.pending, err)
			b.recErrSeen = true
		}
	}

	err := errors.Join(b.pending...)
	b.pending = nil
	return err
}

// Close stops everything and makes further control calls fail with ErrClosed.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	err := b.stopLocked()
	b.closed = true
	b.mu.Unlock()

	b.watchers.Wait()
	b.logger.Info("bridge closed")
	return err
}

func (b *Bridge) ensureEngine() error {
	if b.engine.Running() {
		return nil
	}
	return b.engine.Start(b.cfg)
}

// settle derives the state from what is active and stops the stream once
// nothing needs it.
func (b *Bridge) settle() {
	next := stateOf(b.started || b.playback != nil, b.rec != nil)

	if next == Idle && b.engine.Running() {
		if err := b.engine.Stop(); err != nil {
			b.logger.Warn("stopping render engine", "error", err)
			b.pending = append(b.pending, err)
		}
	}

	if prev := State(b.state.Swap(int32(next))); prev != next {
		b.logger.Info("bridge state changed", "from", prev.String(), "to", next.String())
	}
}
