// SPDX-License-Identifier: EPL-2.0

// Package recorder drains the render engine's tap into a recording file.
//
// The render thread pushes frame blocks into a handoff.Queue. A Recorder owns
// the consumer side: its writer goroutine pops blocks, converts them to the
// session's PCM depth and appends them to the Session. Stop drains what is
// left within a bounded wait and finalizes the file; frames that never
// reached the file make the recording incomplete.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/handoff"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultDrainTimeout = 2 * time.Second
	DefaultPollInterval = 5 * time.Millisecond
)

// abandonGrace bounds how long Stop and Abort wait for a writer stuck in a
// sink call after it was told to give up.
const abandonGrace = 250 * time.Millisecond

type Options struct {
	DrainTimeout time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = DefaultDrainTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Recorder runs one writer goroutine for one session.
type Recorder struct {
	session *Session
	queue   *handoff.Queue
	opts    Options
	logger  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan struct{}
	done     chan struct{}

	stopOnce sync.Once
	finish   sync.Once
	result   error

	err      atomic.Pointer[error]
	timedOut atomic.Bool
}

// Start spawns the writer goroutine. q must be fed blocks laid out with the
// session's channel count.
func Start(session *Session, q *handoff.Queue, opts Options) *Recorder {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	r := &Recorder{
		session:  session,
		queue:    q,
		opts:     opts,
		logger:   opts.Logger.With("component", "recorder", "session", session.ID()),
		ctx:      ctx,
		cancel:   cancel,
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}

	r.logger.Info("recording started",
		"path", session.Path(),
		"sample_rate", session.cfg.SampleRate,
		"channels", session.cfg.Channels,
		"bits_per_sample", session.cfg.BitsPerSample)

	go r.run()

	return r
}

func (r *Recorder) Session() *Session { return r.session }

// Done is closed once the writer has finalized the file.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Err returns the writer fault, if any, without stopping the recorder.
func (r *Recorder) Err() error {
	if p := r.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	defer r.finalize()

	buf := make([]float32, r.queue.BlockSize())
	poll := r.opts.PollInterval

	for {
		n, ok := r.queue.PopWait(r.ctx, buf, poll, poll)
		if ok {
			if err := r.session.write(buf[:n]); err != nil {
				r.err.Store(&err)
				r.logger.Error("recording write failed", "error", err)
				return
			}
		}

		if r.ctx.Err() != nil {
			return
		}
		if !ok {
			select {
			case <-r.stopping:
				if r.queue.Len() == 0 {
					return
				}
			default:
			}
		}
	}
}

func (r *Recorder) finalize() {
	if err := r.session.Close(); err != nil {
		r.err.CompareAndSwap(nil, &err)
		r.logger.Error("finalizing recording failed", "error", err)
	}
}

// Stop waits up to DrainTimeout for queued frames to reach the file, then
// finalizes it. The caller must have detached the tap so no more blocks
// arrive. It returns audio.ErrRecordingIO when the writer faulted and
// audio.ErrIncompleteRecording when frames were lost or the drain timed out.
func (r *Recorder) Stop() error {
	r.stopOnce.Do(func() { close(r.stopping) })

	timer := time.NewTimer(r.opts.DrainTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-timer.C:
		r.timedOut.Store(true)
		r.cancel()
		r.waitAbandoned()
	}

	return r.close()
}

// Abort gives up on queued frames and finalizes what was written so far.
// Discarded frames count as overruns.
func (r *Recorder) Abort() error {
	r.stopOnce.Do(func() { close(r.stopping) })
	r.cancel()
	r.waitAbandoned()
	return r.close()
}

func (r *Recorder) waitAbandoned() {
	t := time.NewTimer(abandonGrace)
	defer t.Stop()

	select {
	case <-r.done:
	case <-t.C:
		r.logger.Warn("recording writer still busy; file will be finalized when it returns")
	}
}

func (r *Recorder) close() error {
	r.finish.Do(func() {
		r.cancel()

		select {
		case <-r.done:
			if n := r.queue.Discard(); n > 0 {
				r.logger.Warn("discarded queued frames", "frames", n)
			}
		default:
		}

		r.result = r.outcome()
	})
	return r.result
}

func (r *Recorder) outcome() error {
	st := r.Stats()

	if err := r.Err(); err != nil {
		return err
	}

	lost := int64(st.PushedFrames) - st.FramesWritten
	switch {
	case r.timedOut.Load():
		r.logger.Warn("recording drain timed out", "frames_written", st.FramesWritten, "frames_lost", lost)
		return fmt.Errorf("%w: drain timed out after %s with %d frames unwritten",
			audio.ErrIncompleteRecording, r.opts.DrainTimeout, lost)
	case lost > 0:
		r.logger.Warn("recording lost frames", "frames_written", st.FramesWritten, "frames_lost", lost, "overruns", st.Overruns)
		return fmt.Errorf("%w: %d of %d frames lost (%d overruns)",
			audio.ErrIncompleteRecording, lost, st.PushedFrames, st.Overruns)
	}

	r.logger.Info("recording finalized", "path", r.session.Path(), "frames", st.FramesWritten)
	return nil
}

// Stats combines the file cursor with the queue counters.
type Stats struct {
	FramesWritten int64
	PushedFrames  uint64
	DroppedFrames uint64
	Overruns      uint64
	Queued        int
}

func (r *Recorder) Stats() Stats {
	q := r.queue.Stats()
	return Stats{
		FramesWritten: r.session.FramesWritten(),
		PushedFrames:  q.PushedFrames,
		DroppedFrames: q.DroppedFrames,
		Overruns:      q.Overruns,
		Queued:        q.Queued,
	}
}
