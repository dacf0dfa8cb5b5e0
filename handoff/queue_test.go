// SPDX-License-Identifier: EPL-2.0

package handoff

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func mustQueue(t testing.TB, capacity, blockSize int) *Queue {
	t.Helper()
	q, err := New(capacity, blockSize)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", capacity, blockSize, err)
	}
	return q
}

func block(size int, v float32) []float32 {
	b := make([]float32, size)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		capacity, blockSize int
		want                error
	}{
		{0, 8, ErrInvalidCapacity},
		{1, 8, ErrInvalidCapacity},
		{3, 8, ErrInvalidCapacity},
		{12, 8, ErrInvalidCapacity},
		{4, 0, ErrInvalidBlock},
	}

	for _, tt := range tests {
		if _, err := New(tt.capacity, tt.blockSize); !errors.Is(err, tt.want) {
			t.Errorf("New(%d, %d) error = %v, want %v", tt.capacity, tt.blockSize, err, tt.want)
		}
	}
}

func TestCapacityFor(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{0: 2, 1: 2, 2: 2, 3: 4, 16: 16, 17: 32, 100: 128} {
		if got := CapacityFor(in); got != want {
			t.Errorf("CapacityFor(%d) = %d, want %d", in, got, want)
		}
		if _, err := New(CapacityFor(in), 1); err != nil {
			t.Errorf("CapacityFor(%d) is not a valid capacity: %v", in, err)
		}
	}
}

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 4, 8)
	q.SetChannels(2)

	for i := range 3 {
		if !q.Push(block(8-2*i, float32(i))) {
			t.Fatalf("push %d dropped a block", i)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	dst := make([]float32, 8)
	for i := range 3 {
		n, ok := q.Pop(dst)
		if !ok {
			t.Fatalf("pop %d: queue empty", i)
		}
		if n != 8-2*i {
			t.Errorf("pop %d: n = %d, want %d", i, n, 8-2*i)
		}
		for _, v := range dst[:n] {
			if v != float32(i) {
				t.Fatalf("pop %d: got sample %f", i, v)
			}
		}
	}

	if _, ok := q.Pop(dst); ok {
		t.Error("pop from empty queue succeeded")
	}

	st := q.Stats()
	if st.Pushed != 3 || st.PushedFrames != 4+3+2 || st.Overruns != 0 || st.Queued != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestQueue_OverflowDropsOldest(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 4, 4)
	q.SetChannels(2)

	for i := range 6 {
		ok := q.Push(block(4, float32(i)))
		if want := i < 4; ok != want {
			t.Errorf("push %d = %v, want %v", i, ok, want)
		}
	}

	st := q.Stats()
	if st.Overruns != 2 || st.DroppedFrames != 4 || st.Queued != 4 {
		t.Errorf("stats = %+v, want 2 overruns, 4 dropped frames, 4 queued", st)
	}

	dst := make([]float32, 4)
	for want := 2; want < 6; want++ {
		if _, ok := q.Pop(dst); !ok || dst[0] != float32(want) {
			t.Fatalf("pop = %f (ok=%v), want %d", dst[0], ok, want)
		}
	}
}

func TestQueue_PushTruncates(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 2, 4)
	q.Push(block(10, 1))

	dst := make([]float32, 4)
	if n, _ := q.Pop(dst); n != 4 {
		t.Errorf("n = %d, want 4", n)
	}
}

func TestQueue_PushPlanar(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 2, 6)
	q.SetChannels(2)

	left := []float32{1, 2, 3, 4}
	right := []float32{-1, -2, -3, -4}
	// Four frames do not fit a six sample block; three do.
	q.PushPlanar([][]float32{left, right}, 4)

	dst := make([]float32, 6)
	n, ok := q.Pop(dst)
	if !ok || n != 6 {
		t.Fatalf("Pop() = %d, %v", n, ok)
	}
	want := []float32{1, -1, 2, -2, 3, -3}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
	if f := q.Stats().PushedFrames; f != 3 {
		t.Errorf("PushedFrames = %d, want 3", f)
	}

	if !q.PushPlanar(nil, 10) || q.Len() != 0 {
		t.Error("pushing no channels should be a no-op")
	}
}

func TestQueue_PopWait(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 2, 2)
	dst := make([]float32, 2)

	start := time.Now()
	if _, ok := q.PopWait(context.Background(), dst, 20*time.Millisecond, time.Millisecond); ok {
		t.Fatal("PopWait on an empty queue succeeded")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("PopWait returned before its timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.PopWait(ctx, dst, time.Hour, time.Millisecond); ok {
		t.Fatal("PopWait with a cancelled context succeeded")
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Push([]float32{7, 8})
	}()
	n, ok := q.PopWait(context.Background(), dst, time.Second, time.Millisecond)
	if !ok || n != 2 || dst[0] != 7 {
		t.Errorf("PopWait() = %d, %v, %v", n, ok, dst)
	}
}

func TestQueue_Discard(t *testing.T) {
	t.Parallel()

	q := mustQueue(t, 4, 4)
	q.SetChannels(2)
	q.Push(block(4, 1))
	q.Push(block(2, 1))

	if frames := q.Discard(); frames != 3 {
		t.Errorf("Discard() = %d, want 3", frames)
	}
	st := q.Stats()
	if st.Overruns != 2 || st.DroppedFrames != 3 || st.Queued != 0 {
		t.Errorf("stats = %+v", st)
	}
}

// A slow consumer never blocks the producer and never sees a torn or
// repeated block.
func TestQueue_SlowConsumer(t *testing.T) {
	t.Parallel()

	const blocks = 5000

	q := mustQueue(t, 8, 64)

	var finished atomic.Bool
	go func() {
		b := make([]float32, 64)
		for i := range blocks {
			for j := range b {
				b[j] = float32(i)
			}
			q.Push(b)
		}
		finished.Store(true)
	}()

	dst := make([]float32, 64)
	popped := 0
	last := float32(-1)
	for {
		n, ok := q.Pop(dst)
		if !ok {
			if finished.Load() && q.Len() == 0 {
				break
			}
			continue
		}
		popped++

		for _, v := range dst[:n] {
			if v != dst[0] {
				t.Fatalf("torn block: %f and %f", dst[0], v)
			}
		}
		if dst[0] <= last {
			t.Fatalf("block %f after %f", dst[0], last)
		}
		last = dst[0]

		if popped%16 == 0 {
			time.Sleep(50 * time.Microsecond)
		}
	}

	st := q.Stats()
	if st.Pushed != blocks {
		t.Errorf("Pushed = %d, want %d", st.Pushed, blocks)
	}
	if uint64(popped)+st.Overruns != blocks {
		t.Errorf("popped %d + overruns %d != %d", popped, st.Overruns, blocks)
	}
}

func TestQueue_ZeroAllocs(t *testing.T) {
	q := mustQueue(t, 4, 512)
	src := block(512, 0.5)
	planar := [][]float32{src[:256], src[256:]}
	dst := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		q.Push(src)
		q.PushPlanar(planar, 256)
		q.Pop(dst)
		q.Pop(dst)
	})
	if allocs != 0 {
		t.Errorf("push/pop allocated %.1f times per run", allocs)
	}
}

func BenchmarkQueue_PushPop(b *testing.B) {
	q := mustQueue(b, 16, 1024)
	src := block(1024, 0.25)
	dst := make([]float32, 1024)

	b.ReportAllocs()
	for b.Loop() {
		q.Push(src)
		q.Pop(dst)
	}
}

func BenchmarkQueue_PushPlanar(b *testing.B) {
	q := mustQueue(b, 16, 1024)
	planar := [][]float32{block(512, 0.25), block(512, -0.25)}

	b.ReportAllocs()
	for b.Loop() {
		q.PushPlanar(planar, 512)
	}
}
