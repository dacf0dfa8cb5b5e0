// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/formats/wav"
)

// Sink receives interleaved float32 frames for one recording. The WAV
// encoder is the production sink.
type Sink interface {
	WriteFrames(samples []float32) error
	Close() error
}

// Session is a writable FileSession: an open destination plus its format.
// The control goroutine creates it, the writer goroutine appends to it and
// finalizes it; the two never use it at the same time.
type Session struct {
	id   uuid.UUID
	path string
	cfg  audio.StreamConfig
	sink Sink

	frames    atomic.Int64
	faulted   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// SinkOpener opens the destination for a recording at path.
type SinkOpener func(path string, cfg audio.StreamConfig) (Sink, error)

// Create opens path as a linear PCM WAV file at cfg's rate, channel count
// and bit depth. An existing file is truncated.
func Create(path string, cfg audio.StreamConfig) (*Session, error) {
	return CreateWith(path, cfg, OpenWAV)
}

// CreateWith validates cfg and opens the destination with open.
func CreateWith(path string, cfg audio.StreamConfig, open SinkOpener) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sink, err := open(path, cfg)
	if err != nil {
		return nil, err
	}
	return NewSession(path, cfg, sink), nil
}

// OpenWAV is the default SinkOpener.
func OpenWAV(path string, cfg audio.StreamConfig) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrFileCreate, err)
	}

	enc, err := wav.NewEncoder(f, cfg.SampleRate, cfg.Channels, cfg.BitsPerSample)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrFileCreate, path, err)
	}
	return enc, nil
}

// NewSession wraps an already opened sink.
func NewSession(path string, cfg audio.StreamConfig, sink Sink) *Session {
	return &Session{
		id:   uuid.New(),
		path: path,
		cfg:  cfg,
		sink: sink,
	}
}

func (s *Session) ID() string                 { return s.id.String() }
func (s *Session) Path() string               { return s.path }
func (s *Session) Config() audio.StreamConfig { return s.cfg }

// FramesWritten is the file cursor.
func (s *Session) FramesWritten() int64 { return s.frames.Load() }

// Faulted reports a failed write; nothing more is appended after one.
func (s *Session) Faulted() bool { return s.faulted.Load() }

func (s *Session) write(samples []float32) error {
	if s.faulted.Load() {
		return audio.ErrRecordingIO
	}
	if err := s.sink.WriteFrames(samples); err != nil {
		s.faulted.Store(true)
		return fmt.Errorf("%w: %w", audio.ErrRecordingIO, err)
	}
	s.frames.Add(int64(len(samples) / s.cfg.Channels))
	return nil
}

// Close finalizes the file. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.sink.Close(); err != nil {
			s.closeErr = errors.Join(audio.ErrRecordingIO, fmt.Errorf("finalizing %s: %w", s.path, err))
		}
	})
	return s.closeErr
}
