// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"slices"
	"sync"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	wav := &fakeDecoder{magic: "RIFF"}
	mp3 := &fakeDecoder{magic: "ID3"}

	registry.Register("wav", wav)
	registry.Register("mp3", mp3)

	tests := []struct {
		format string
		want   Decoder
		wantOK bool
	}{
		{"wav", wav, true},
		{"mp3", mp3, true},
		{"flac", nil, false},
	}

	for _, tt := range tests {
		got, ok := registry.Get(tt.format)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("Get(%q) = %v, %v", tt.format, got, ok)
		}
	}

	if got := registry.Formats(); !slices.Equal(got, []string{"wav", "mp3"}) {
		t.Errorf("Formats() = %v", got)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &fakeDecoder{}
	second := &fakeDecoder{}

	registry.Register("wav", first)
	registry.Register("wav", second)

	if got, _ := registry.Get("wav"); got != second {
		t.Error("Get() did not return the replacement decoder")
	}
	if n := len(registry.Formats()); n != 1 {
		t.Errorf("Formats() has %d entries after overwrite, want 1", n)
	}
}

func TestRegistry_Detect(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("raw", plainDecoder{})
	registry.Register("wav", &fakeDecoder{magic: "RIFF"})
	registry.Register("ogg", &fakeDecoder{magic: "OggS"})

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"RIFF\x00\x00\x00\x00WAVE", "wav", true},
		{"OggS\x00\x02", "ogg", true},
		{"ID3\x04", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		format, _, ok := registry.Detect([]byte(tt.header))
		if format != tt.want || ok != tt.ok {
			t.Errorf("Detect(%q) = %q, %v; want %q, %v", tt.header, format, ok, tt.want, tt.ok)
		}
	}
}

func TestRegistry_ForPath(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("wav", &fakeDecoder{magic: "RIFF"}, "wave")
	registry.Register("ogg", &fakeDecoder{magic: "OggS"}, ".oga", "Vorbis")

	tests := []struct {
		name   string
		path   string
		header string
		want   string
		ok     bool
	}{
		{"magic wins over extension", "song.ogg", "RIFF....WAVE", "wav", true},
		{"format key as extension", "song.WAV", "junk", "wav", true},
		{"extra extension", "song.wave", "", "wav", true},
		{"extension with dot registered", "a.oga", "", "ogg", true},
		{"extension case folded", "a.vorbis", "", "ogg", true},
		{"unknown", "a.flac", "fLaC", "", false},
		{"no extension", "README", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			format, dec, ok := registry.ForPath(tt.path, []byte(tt.header))
			if format != tt.want || ok != tt.ok {
				t.Errorf("ForPath(%q) = %q, %v; want %q, %v", tt.path, format, ok, tt.want, tt.ok)
			}
			if ok && dec == nil {
				t.Error("ForPath returned a nil decoder")
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	decoder := &fakeDecoder{magic: "RIFF"}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register("format", decoder, "fmt")
		}()
		go func() {
			defer wg.Done()
			_, _, _ = registry.ForPath("x.fmt", []byte("RIFF"))
		}()
	}
	wg.Wait()

	if got, ok := registry.Get("format"); !ok || got != decoder {
		t.Error("decoder missing after concurrent registration")
	}
}

func BenchmarkRegistry_ForPath(b *testing.B) {
	registry := NewRegistry()
	registry.Register("wav", &fakeDecoder{magic: "RIFF"})
	registry.Register("mp3", &fakeDecoder{magic: "ID3"})
	registry.Register("ogg", &fakeDecoder{magic: "OggS"})
	header := []byte("OggS\x00\x02\x00\x00")

	b.ReportAllocs()
	for b.Loop() {
		_, _, _ = registry.ForPath("track.ogg", header)
	}
}
