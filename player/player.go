// SPDX-License-Identifier: EPL-2.0

// Package player streams a decoded file into the render engine.
//
// A Player is a SampleSource. Its decoder goroutine reads the session ahead
// of time into a handoff.Queue, waiting while the queue is full, and
// GenerateSamples copies blocks out of the queue on the real-time thread.
// When the file is exhausted GenerateSamples renders silence and EndOfStream
// turns true; a queue that runs dry before that is an underrun.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/handoff"
)

const (
	DefaultQueueBlocks     = 16
	DefaultMaxDecodeErrors = 8
	DefaultPollInterval    = 2 * time.Millisecond
)

type Options struct {
	// QueueBlocks is the read-ahead depth in callbacks, rounded up to a power of two.
	QueueBlocks int
	// MaxDecodeErrors consecutive decode failures end the stream.
	MaxDecodeErrors int
	PollInterval    time.Duration
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.QueueBlocks <= 0 {
		o.QueueBlocks = DefaultQueueBlocks
	}
	if o.MaxDecodeErrors <= 0 {
		o.MaxDecodeErrors = DefaultMaxDecodeErrors
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Player implements audio.SampleSource over a Session.
type Player struct {
	session  *Session
	queue    *handoff.Queue
	channels int
	opts     Options
	logger   *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
	stop    sync.Once

	// Render-thread state: the block being played out.
	cur    []float32
	curLen int // frames in cur
	curPos int

	decoded   atomic.Bool // decoder pushed its last block
	ended     atomic.Bool
	rendered  atomic.Uint64
	underruns atomic.Uint64

	errMu        sync.Mutex
	errs         []error
	decodeErrors atomic.Uint64
}

// New prepares a player for a stream running with cfg. The session must
// already match cfg (see Open).
func New(session *Session, cfg audio.StreamConfig, opts Options) (*Player, error) {
	opts = opts.withDefaults()

	q, err := handoff.New(handoff.CapacityFor(opts.QueueBlocks), cfg.BlockSamples())
	if err != nil {
		return nil, fmt.Errorf("creating playback queue: %w", err)
	}
	q.SetChannels(cfg.Channels)

	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		session:  session,
		queue:    q,
		channels: cfg.Channels,
		opts:     opts,
		logger:   opts.Logger.With("component", "player", "session", session.ID()),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		cur:      make([]float32, cfg.BlockSamples()),
	}, nil
}

func (p *Player) Session() *Session { return p.session }

// Start spawns the decoder goroutine. Calling it again has no effect.
func (p *Player) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.logger.Info("playback started", "path", p.session.Path(), "format", p.session.Format())
	go p.decode()
}

func (p *Player) decode() {
	defer close(p.done)
	defer p.decoded.Store(true)

	src := p.session.src
	block := make([]float32, p.queue.BlockSize())
	fill := 0
	failures := 0

	for {
		n, err := src.ReadSamples(block[fill:])
		fill += n
		if n > 0 {
			failures = 0
		}

		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			failures++
			p.decodeErrors.Add(1)
			p.report(fmt.Errorf("%w: %s: %w", audio.ErrDecode, p.session.Path(), err))
			if failures >= p.opts.MaxDecodeErrors {
				p.logger.Error("too many decode errors, ending playback", "errors", failures)
				eof = true
			}
		}

		if fill == len(block) || (eof && fill > 0) {
			whole := fill / p.channels * p.channels
			if !p.push(block[:whole]) {
				return
			}
			p.session.frames.Add(int64(whole / p.channels))
			fill = 0
		}

		if eof {
			p.logger.Info("playback decoded", "frames", p.session.FramesDecoded())
			return
		}
		if p.ctx.Err() != nil {
			return
		}
	}
}

// push waits for room so the render side never loses decoded blocks.
func (p *Player) push(block []float32) bool {
	if len(block) == 0 {
		return true
	}
	if p.queue.Len() >= p.queue.Cap() {
		tick := time.NewTicker(p.opts.PollInterval)
		defer tick.Stop()

		for p.queue.Len() >= p.queue.Cap() {
			select {
			case <-p.ctx.Done():
				return false
			case <-tick.C:
			}
		}
	}
	p.queue.Push(block)
	return true
}

func (p *Player) report(err error) {
	p.errMu.Lock()
	p.errs = append(p.errs, err)
	p.errMu.Unlock()
}

// GenerateSamples renders the next buf.Frames frames. It never blocks and
// never fails: missing data is silence.
func (p *Player) GenerateSamples(buf audio.SampleBuffer) error {
	if p.ended.Load() {
		buf.Silence()
		return nil
	}

	written := 0
	for written < buf.Frames {
		if p.curPos >= p.curLen {
			if !p.next() {
				buf.SilenceFrom(written)
				break
			}
		}

		k := min(buf.Frames-written, p.curLen-p.curPos)
		ch := p.channels
		buf.Deinterleave(p.cur[p.curPos*ch:(p.curPos+k)*ch], written)
		written += k
		p.curPos += k
	}

	p.rendered.Add(uint64(written))
	return nil
}

// next loads the following block, flagging the end of stream or an underrun
// when there is none.
func (p *Player) next() bool {
	n, ok := p.queue.Pop(p.cur)
	if !ok && p.decoded.Load() {
		// The last push may have landed after the first attempt.
		n, ok = p.queue.Pop(p.cur)
		if !ok {
			p.ended.Store(true)
			return false
		}
	}
	if !ok {
		p.underruns.Add(1)
		return false
	}
	p.curLen, p.curPos = n/p.channels, 0
	return true
}

// WaitReady waits up to timeout until the read-ahead queue is full or the
// whole file is decoded. It reports whether that happened.
func (p *Player) WaitReady(timeout time.Duration) bool {
	ready := func() bool {
		return p.decoded.Load() || p.queue.Len() >= p.queue.Cap()
	}
	if ready() {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-deadline.C:
			return ready()
		case <-tick.C:
			if ready() {
				return true
			}
		}
	}
}

// EndOfStream reports that every decoded frame has been rendered.
func (p *Player) EndOfStream() bool { return p.ended.Load() }

// Err returns the decode errors reported so far.
func (p *Player) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return errors.Join(p.errs...)
}

// TakeErr returns and clears the decode errors reported so far.
func (p *Player) TakeErr() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

// Stop ends decoding and closes the session. The player must no longer be
// published to the render engine.
func (p *Player) Stop() error {
	var err error
	p.stop.Do(func() {
		p.cancel()
		if p.started.Load() {
			<-p.done
		}
		err = p.session.Close()
		p.logger.Info("playback stopped",
			"frames_rendered", p.rendered.Load(),
			"underruns", p.underruns.Load(),
			"decode_errors", p.decodeErrors.Load())
	})
	return err
}

type Stats struct {
	FramesDecoded  int64
	FramesRendered uint64
	Underruns      uint64
	DecodeErrors   uint64
	Queued         int
	EndOfStream    bool
}

func (p *Player) Stats() Stats {
	return Stats{
		FramesDecoded:  p.session.FramesDecoded(),
		FramesRendered: p.rendered.Load(),
		Underruns:      p.underruns.Load(),
		DecodeErrors:   p.decodeErrors.Load(),
		Queued:         p.queue.Len(),
		EndOfStream:    p.ended.Load(),
	}
}

var _ audio.SampleSource = (*Player)(nil)
