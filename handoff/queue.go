// SPDX-License-Identifier: EPL-2.0

// Package handoff provides the lock-free queue that moves frame blocks
// between the real-time render thread and ordinary goroutines.
//
// A Queue has exactly one producer and one consumer. Push never blocks and
// never allocates: when the queue is full the oldest unconsumed block is
// dropped and counted as an overrun. Pop detects a block overwritten while it
// was being copied (each slot carries a sequence number) and skips it, so a
// consumer never sees a torn block and never sees a block twice.
package handoff

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidCapacity = errors.New("handoff: capacity must be a power of two")
	ErrInvalidBlock    = errors.New("handoff: block size must be positive")
)

type slot struct {
	// seq is 2*pos+1 while position pos is being written, 2*pos+2 once published.
	seq     atomic.Uint64
	samples atomic.Int64
	data    []atomic.Uint32
}

// Queue is a fixed-capacity single-producer/single-consumer ring of
// interleaved float32 blocks.
type Queue struct {
	slots     []slot
	mask      uint64
	blockSize int

	head atomic.Uint64 // next position to read
	tail atomic.Uint64 // next position to write

	pushed        atomic.Uint64
	pushedFrames  atomic.Uint64
	overruns      atomic.Uint64
	droppedFrames atomic.Uint64
	channels      atomic.Int64
}

// CapacityFor returns the smallest valid capacity holding at least blocks blocks.
func CapacityFor(blocks int) int {
	c := 2
	for c < blocks {
		c <<= 1
	}
	return c
}

// New allocates capacity blocks of blockSize samples each.
func New(capacity, blockSize int) (*Queue, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrInvalidCapacity
	}
	if blockSize < 1 {
		return nil, ErrInvalidBlock
	}

	q := &Queue{
		slots:     make([]slot, capacity),
		mask:      uint64(capacity - 1),
		blockSize: blockSize,
	}
	for i := range q.slots {
		q.slots[i].data = make([]atomic.Uint32, blockSize)
	}
	q.channels.Store(1)

	return q, nil
}

func (q *Queue) Cap() int       { return len(q.slots) }
func (q *Queue) BlockSize() int { return q.blockSize }

// Len is the number of blocks waiting. It is a snapshot.
func (q *Queue) Len() int {
	t := q.tail.Load()
	h := q.head.Load()
	if t < h {
		return 0
	}
	return int(t - h)
}

// SetChannels records how many interleaved channels a block carries so frame
// counters can be derived. Call it before the producer starts.
func (q *Queue) SetChannels(channels int) {
	q.channels.Store(int64(max(channels, 1)))
}

// Push copies up to BlockSize samples of block into the queue. It reports
// false when an older block had to be dropped to make room.
func (q *Queue) Push(block []float32) bool {
	if len(block) > q.blockSize {
		block = block[:q.blockSize]
	}

	t := q.tail.Load()
	ok := true
	if h := q.head.Load(); t-h >= uint64(len(q.slots)) {
		old := &q.slots[h&q.mask]
		dropped := old.samples.Load()
		// If the CAS fails the consumer just took the block and there is room.
		if q.head.CompareAndSwap(h, h+1) {
			q.overruns.Add(1)
			q.droppedFrames.Add(uint64(dropped / q.channels.Load()))
			ok = false
		}
	}

	s := &q.slots[t&q.mask]
	s.seq.Store(2*t + 1)
	for i, v := range block {
		s.data[i].Store(math.Float32bits(v))
	}
	s.samples.Store(int64(len(block)))
	s.seq.Store(2*t + 2)
	q.tail.Store(t + 1)

	q.pushed.Add(1)
	q.pushedFrames.Add(uint64(int64(len(block)) / q.channels.Load()))

	return ok
}

// PushPlanar interleaves a planar buffer straight into the queue, avoiding
// a scratch copy on the render thread.
func (q *Queue) PushPlanar(channels [][]float32, frames int) bool {
	nch := len(channels)
	if nch == 0 {
		return true
	}
	if frames*nch > q.blockSize {
		frames = q.blockSize / nch
	}

	t := q.tail.Load()
	ok := true
	if h := q.head.Load(); t-h >= uint64(len(q.slots)) {
		old := &q.slots[h&q.mask]
		dropped := old.samples.Load()
		if q.head.CompareAndSwap(h, h+1) {
			q.overruns.Add(1)
			q.droppedFrames.Add(uint64(dropped / int64(nch)))
			ok = false
		}
	}

	s := &q.slots[t&q.mask]
	s.seq.Store(2*t + 1)
	for c, ch := range channels {
		for f := range frames {
			s.data[f*nch+c].Store(math.Float32bits(ch[f]))
		}
	}
	s.samples.Store(int64(frames * nch))
	s.seq.Store(2*t + 2)
	q.tail.Store(t + 1)

	q.pushed.Add(1)
	q.pushedFrames.Add(uint64(frames))

	return ok
}

// Pop copies the oldest block into dst and returns the number of samples
// copied. ok is false when the queue is empty. dst must hold BlockSize samples.
func (q *Queue) Pop(dst []float32) (n int, ok bool) {
	for {
		h := q.head.Load()
		if h == q.tail.Load() {
			return 0, false
		}

		s := &q.slots[h&q.mask]
		seq := s.seq.Load()
		if seq != 2*h+2 {
			// The producer already recycled this slot and moved head on.
			continue
		}

		n = int(s.samples.Load())
		n = min(n, len(dst))
		for i := range n {
			dst[i] = math.Float32frombits(s.data[i].Load())
		}

		if s.seq.Load() != seq {
			continue
		}
		if q.head.CompareAndSwap(h, h+1) {
			return n, true
		}
		// Lost the race with an overrun drop; that block is already counted.
	}
}

// PopWait waits up to timeout for a block, sleeping poll between checks.
// It returns early when ctx is done.
func (q *Queue) PopWait(ctx context.Context, dst []float32, timeout, poll time.Duration) (int, bool) {
	if n, ok := q.Pop(dst); ok {
		return n, true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, false
		case <-deadline.C:
			return q.Pop(dst)
		case <-tick.C:
			if n, ok := q.Pop(dst); ok {
				return n, true
			}
		}
	}
}

// Discard drops every queued block, counting them as overruns, and returns
// the number of frames discarded. Only the consumer may call it.
func (q *Queue) Discard() int {
	buf := make([]float32, q.blockSize)
	frames := 0
	for {
		n, ok := q.Pop(buf)
		if !ok {
			break
		}
		f := n / int(q.channels.Load())
		frames += f
		q.overruns.Add(1)
		q.droppedFrames.Add(uint64(f))
	}
	return frames
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Pushed        uint64
	PushedFrames  uint64
	Overruns      uint64
	DroppedFrames uint64
	Queued        int
}

func (q *Queue) Stats() Stats {
	return Stats{
		Pushed:        q.pushed.Load(),
		PushedFrames:  q.pushedFrames.Load(),
		Overruns:      q.overruns.Load(),
		DroppedFrames: q.droppedFrames.Load(),
		Queued:        q.Len(),
	}
}
