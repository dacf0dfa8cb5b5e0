// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// Source is a decoded, interleaved stream read off the real-time path, by the
// Player's decoder goroutine.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources, including the reader handed to Decode
	// when it implements io.Closer.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Detector is implemented by decoders that can recognise their container from
// the first bytes of a file.
type Detector interface {
	Detect(header []byte) bool
}

// Registry maps format keys (e.g., "wav", "mp3", "ogg") to decoders and picks
// the right one for a playback file.
type Registry struct {
	codecs map[string]Decoder
	exts   map[string]string
	order  []string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		exts:   make(map[string]string),
		mtx:    &sync.Mutex{},
	}
}

// Register adds a decoder under format. Extra extensions (without the dot)
// may be given; the format key itself always counts as one.
func (r *Registry) Register(format string, d Decoder, extensions ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.codecs[format]; !ok {
		r.order = append(r.order, format)
	}
	r.codecs[format] = d
	r.exts[strings.ToLower(format)] = format
	for _, ext := range extensions {
		r.exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = format
	}
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Detect returns the first registered decoder, in registration order, whose
// Detector accepts header.
func (r *Registry) Detect(header []byte) (string, Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, format := range r.order {
		d := r.codecs[format]
		if det, ok := d.(Detector); ok && det.Detect(header) {
			return format, d, true
		}
	}
	return "", nil, false
}

// ForPath picks a decoder for a file: magic bytes first, then the extension.
func (r *Registry) ForPath(path string, header []byte) (string, Decoder, bool) {
	if format, d, ok := r.Detect(header); ok {
		return format, d, true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	r.mtx.Lock()
	defer r.mtx.Unlock()

	format, ok := r.exts[ext]
	if !ok {
		return "", nil, false
	}
	d, ok := r.codecs[format]
	return format, d, ok
}

// Formats lists the registered format keys in registration order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return append([]string(nil), r.order...)
}
