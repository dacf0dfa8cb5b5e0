// SPDX-License-Identifier: EPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audbridge/audio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, audio.DefaultStreamConfig(), cfg.Stream())
	assert.Equal(t, "malgo", cfg.Audio.Backend)
	assert.Equal(t, "output", cfg.Recorder.Tap)
	assert.Equal(t, 2*time.Second, cfg.Recorder.DrainTimeout)
	assert.Equal(t, 8, cfg.Player.MaxDecodeErrors)
	assert.Equal(t, []string{"stderr"}, cfg.Logging.Outputs)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
audio:
  backend: virtual
  sample_rate: 48000
  channels: 1
  input_channels: 1
recorder:
  tap: input
  drain_timeout: 500ms
logging:
  level: debug
metrics:
  addr: ":9100"
`)
	t.Setenv("AUDBRIDGE_AUDIO_FRAMES_PER_CALLBACK", "256")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, audio.StreamConfig{
		SampleRate:        48000,
		Channels:          1,
		BitsPerSample:     16,
		FramesPerCallback: 256,
		InputChannels:     1,
	}, cfg.Stream())
	assert.Equal(t, "input", cfg.Recorder.Tap)
	assert.Equal(t, 500*time.Millisecond, cfg.Recorder.DrainTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad rate", "audio:\n  sample_rate: 1000\n"},
		{"bad backend", "audio:\n  backend: alsa\n"},
		{"bad tap", "recorder:\n  tap: both\n"},
		{"input tap without input", "recorder:\n  tap: input\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(New(), writeConfig(t, tt.body))
			assert.ErrorIs(t, err, audio.ErrConfiguration)
		})
	}

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
