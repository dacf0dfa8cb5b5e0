// SPDX-License-Identifier: EPL-2.0

package player

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ik5/audbridge/audio"
)

// headerSize is how much of a file the registry sees for magic detection.
const headerSize = 16

// Session is a readable FileSession: an open, decoded file already adapted
// to the stream's channel layout.
type Session struct {
	id     uuid.UUID
	path   string
	format string

	src          audio.Source
	fileChannels int

	frames    atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// bitDepther is implemented by sources of linear PCM containers.
type bitDepther interface {
	BitDepth() int
}

// Open opens path, picks a decoder from reg (magic bytes first, then the
// extension) and checks the file can be played on a stream with cfg without
// resampling. Failures wrap audio.ErrFileOpen or audio.ErrUnsupportedFormat.
func Open(path string, cfg audio.StreamConfig, reg *audio.Registry) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrFileOpen, err)
	}

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("%w: reading %s: %w", audio.ErrFileOpen, path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", audio.ErrFileOpen, err)
	}

	format, dec, ok := reg.ForPath(path, header[:n])
	if !ok {
		_ = f.Close()
		return nil, fmt.Errorf("%w: no decoder for %s", audio.ErrUnsupportedFormat, path)
	}

	// The source owns f from here on.
	src, err := dec.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrUnsupportedFormat, format, err)
	}

	adapted, err := adapt(src, cfg)
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	return &Session{
		id:           uuid.New(),
		path:         path,
		format:       format,
		src:          adapted,
		fileChannels: src.Channels(),
	}, nil
}

// NewSession wraps a decoded source that already matches cfg.
func NewSession(path string, src audio.Source, cfg audio.StreamConfig) (*Session, error) {
	adapted, err := adapt(src, cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:           uuid.New(),
		path:         path,
		src:          adapted,
		fileChannels: src.Channels(),
	}, nil
}

func adapt(src audio.Source, cfg audio.StreamConfig) (audio.Source, error) {
	if src.SampleRate() != cfg.SampleRate {
		return nil, fmt.Errorf("%w: file is %d Hz, stream runs at %d Hz",
			audio.ErrUnsupportedFormat, src.SampleRate(), cfg.SampleRate)
	}

	if bd, ok := src.(bitDepther); ok {
		switch bd.BitDepth() {
		case 8, 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: %d-bit samples", audio.ErrUnsupportedFormat, bd.BitDepth())
		}
	}

	switch ch := src.Channels(); {
	case ch == cfg.Channels:
		return src, nil
	case ch == 1:
		return audio.NewUpmixer(src, cfg.Channels)
	case cfg.Channels == 1:
		return audio.NewMonoMixer(src), nil
	default:
		return nil, fmt.Errorf("%w: cannot map %d channels onto %d",
			audio.ErrUnsupportedFormat, ch, cfg.Channels)
	}
}

func (s *Session) ID() string     { return s.id.String() }
func (s *Session) Path() string   { return s.path }
func (s *Session) Format() string { return s.format }

// FileChannels is the channel count stored in the file.
func (s *Session) FileChannels() int { return s.fileChannels }

// FramesDecoded is the read cursor.
func (s *Session) FramesDecoded() int64 { return s.frames.Load() }

// Close releases the decoder and the file. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.src.Close(); err != nil {
			s.closeErr = fmt.Errorf("closing %s: %w", s.path, err)
		}
	})
	return s.closeErr
}
