// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestMonoMixer_Passthrough(t *testing.T) {
	t.Parallel()

	mixer := NewMonoMixer(newFakeSource(8000, 1, 100, constant(0.5)))

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != nil || n != 10 {
		t.Fatalf("ReadSamples() = %d, %v", n, err)
	}
	for i, v := range buf {
		if v != 0.5 {
			t.Errorf("buf[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestMonoMixer_Averages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		channels int
		want     float32
	}{
		{2, 0.15},
		{3, 0.2},
		{6, 0.35},
	}

	for _, tt := range tests {
		src := newFakeSource(44100, tt.channels, 64, byChannel)
		mixer := NewMonoMixer(src)

		if mixer.Channels() != 1 || mixer.SampleRate() != 44100 {
			t.Errorf("%d channels: metadata %d ch @ %d Hz", tt.channels, mixer.Channels(), mixer.SampleRate())
		}

		buf := make([]float32, 32)
		n, err := mixer.ReadSamples(buf)
		if err != nil || n != 32 {
			t.Fatalf("%d channels: ReadSamples() = %d, %v", tt.channels, n, err)
		}
		for i, v := range buf[:n] {
			if !near(v, tt.want) {
				t.Fatalf("%d channels: buf[%d] = %v, want %v", tt.channels, i, v, tt.want)
			}
		}
	}
}

func TestMonoMixer_EOFAndClose(t *testing.T) {
	t.Parallel()

	src := newFakeSource(8000, 2, 5, byChannel)
	mixer := NewMonoMixer(src)

	buf := make([]float32, 8)
	n, err := mixer.ReadSamples(buf)
	if n != 5 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = %d, %v; want 5, EOF", n, err)
	}
	if n, err := mixer.ReadSamples(buf); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() after EOF = %d, %v", n, err)
	}
	if n, err := mixer.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = %d, %v", n, err)
	}

	if err := mixer.Close(); err != nil || !src.closed {
		t.Errorf("Close() = %v, closed = %v", err, src.closed)
	}
}

func TestMonoMixer_ZeroAllocs(t *testing.T) {
	mixer := NewMonoMixer(newFakeSource(44100, 2, math.MaxInt32, byChannel))
	buf := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = mixer.ReadSamples(buf)
	})
	if allocs != 0 {
		t.Errorf("ReadSamples allocated %.1f times per run", allocs)
	}
}

func TestUpmixer(t *testing.T) {
	t.Parallel()

	src := newFakeSource(22050, 1, 3, func(f, _ int) float32 { return float32(f) })
	up, err := NewUpmixer(src, 3)
	if err != nil {
		t.Fatal(err)
	}
	if up.Channels() != 3 || up.SampleRate() != 22050 {
		t.Errorf("metadata %d ch @ %d Hz", up.Channels(), up.SampleRate())
	}

	buf := make([]float32, 12)
	n, err := up.ReadSamples(buf)
	if n != 9 || !errors.Is(err, io.EOF) {
		t.Fatalf("ReadSamples() = %d, %v; want 9, EOF", n, err)
	}
	want := []float32{0, 0, 0, 1, 1, 1, 2, 2, 2}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf[:n], want)
		}
	}

	if _, err := up.ReadSamples(make([]float32, 2)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("short dst error = %v, want ErrInvalidDstSize", err)
	}

	if err := up.Close(); err != nil || !src.closed {
		t.Errorf("Close() = %v, closed = %v", err, src.closed)
	}
}

func TestUpmixer_RejectsMultichannel(t *testing.T) {
	t.Parallel()

	if _, err := NewUpmixer(newFakeSource(8000, 2, 1, byChannel), 4); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("NewUpmixer(stereo) error = %v, want ErrUnsupportedFormat", err)
	}
}

func BenchmarkMonoMixer_StereoToMono(b *testing.B) {
	mixer := NewMonoMixer(newFakeSource(44100, 2, math.MaxInt32, byChannel))
	buf := make([]float32, 512)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = mixer.ReadSamples(buf)
	}
}

func BenchmarkUpmixer_MonoToStereo(b *testing.B) {
	up, err := NewUpmixer(newFakeSource(44100, 1, math.MaxInt32, constant(0.5)), 2)
	if err != nil {
		b.Fatal(err)
	}
	buf := make([]float32, 1024)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = up.ReadSamples(buf)
	}
}
