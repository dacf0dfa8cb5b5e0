// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

// createWAVFile builds a canonical 44-byte header file. samples are written
// at bitsPerSample bits, little endian (8-bit values are stored unsigned).
func createWAVFile(format uint16, sampleRate, channels, bitsPerSample int, samples []int) []byte {
	buf := new(bytes.Buffer)

	bytesPer := bitsPerSample / 8
	byteRate := uint32(sampleRate * channels * bytesPer)
	blockAlign := uint16(channels * bytesPer)
	dataSize := uint32(len(samples) * bytesPer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, format)
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)

	for _, s := range samples {
		switch bitsPerSample {
		case 8:
			buf.WriteByte(byte(s + 128))
		case 16:
			binary.Write(buf, binary.LittleEndian, int16(s))
		case 24:
			v := uint32(int32(s))
			buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16)})
		case 32:
			binary.Write(buf, binary.LittleEndian, int32(s))
		}
	}

	return buf.Bytes()
}

func readAll(t *testing.T, r interface {
	ReadSamples([]float32) (int, error)
}) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 4)
	for {
		n, err := r.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestDecoder_BitDepths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bits    int
		samples []int
		want    []float32
	}{
		{"8-bit", 8, []int{0, 64, -64, -128}, []float32{0, 0.5, -0.5, -1}},
		{"16-bit", 16, []int{0, 16384, -16384, -32768}, []float32{0, 0.5, -0.5, -1}},
		{"24-bit", 24, []int{0, 1 << 22, -(1 << 22), -(1 << 23)}, []float32{0, 0.5, -0.5, -1}},
		{"32-bit", 32, []int{0, 1 << 30, -(1 << 30), math.MinInt32}, []float32{0, 0.5, -0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := createWAVFile(1, 8000, 1, tt.bits, tt.samples)
			src, err := Decoder{}.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			defer src.Close()

			if src.SampleRate() != 8000 || src.Channels() != 1 {
				t.Fatalf("format = %d Hz/%d ch, want 8000/1", src.SampleRate(), src.Channels())
			}

			got := readAll(t, src)
			if len(got) != len(tt.want) {
				t.Fatalf("read %d samples, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("sample[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_Stereo(t *testing.T) {
	t.Parallel()

	data := createWAVFile(1, 44100, 2, 16, []int{100, -100, 200, -200, 300, -300})
	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if src.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", src.Channels())
	}
	if got := readAll(t, src); len(got) != 6 || got[0] != -got[1] {
		t.Errorf("samples = %v, want 6 mirrored samples", got)
	}
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not riff", []byte("NOT A WAV FILE DATA AT ALL"), ErrNotWavFile},
		{"truncated", []byte("RIFF\x00"), ErrNotWavFile},
		{"ieee float", createWAVFile(3, 8000, 1, 32, []int{0}), ErrOnlyLinearPCM},
		{"alaw", createWAVFile(6, 8000, 1, 16, []int{0}), ErrOnlyLinearPCM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecoder_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header []byte
		want   bool
	}{
		{createWAVFile(1, 8000, 1, 16, nil)[:12], true},
		{[]byte("RIFF\x00\x00\x00\x00AVI "), false},
		{[]byte("FORM\x00\x00\x00\x00AIFF"), false},
		{[]byte("RIFF"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := (Decoder{}).Detect(tt.header); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

type closingReader struct {
	*bytes.Reader
	closed int
}

func (c *closingReader) Close() error {
	c.closed++
	return nil
}

func TestDecoder_CloseOwnsReader(t *testing.T) {
	t.Parallel()

	r := &closingReader{Reader: bytes.NewReader(createWAVFile(1, 8000, 1, 16, []int{1, 2}))}
	src, err := Decoder{}.Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if r.closed != 1 {
		t.Errorf("reader closed %d times, want 1", r.closed)
	}
}

func TestDecoder_NonSeekableInput(t *testing.T) {
	t.Parallel()

	data := createWAVFile(1, 8000, 1, 16, []int{1000, 2000, 3000})
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := readAll(t, src); len(got) != 3 {
		t.Errorf("read %d samples, want 3", len(got))
	}
}

func TestDecoder_EmptyData(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(createWAVFile(1, 8000, 2, 16, nil)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	n, err := src.ReadSamples(make([]float32, 8))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = %d, %v; want 0, io.EOF", n, err)
	}
}

func BenchmarkDecoder_ReadSamples(b *testing.B) {
	samples := make([]int, 44100*2)
	for i := range samples {
		samples[i] = int(math.Sin(float64(i)/20) * 20000)
	}
	data := createWAVFile(1, 44100, 2, 16, samples)
	buf := make([]float32, 1024)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
