// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audbridge/audio"
)

func run(t *testing.T, args ...string) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := rootCommand()
	cmd.SetArgs(append([]string{"--backend", "virtual", "--log-level", "error"}, args...))
	return cmd.ExecuteContext(ctx)
}

func TestRecordThenPlay(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, run(t, "record", path, "--duration", "300ms", "--tone", "440"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	// Header plus at least a couple of callbacks of 16-bit stereo.
	assert.Greater(t, info.Size(), int64(44+2*512*4))

	require.NoError(t, run(t, "play", "file://"+path))
}

func TestTone(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, run(t, "tone", "--duration", "50ms"))
}

func TestErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.ErrorIs(t, run(t, "play", filepath.Join(t.TempDir(), "missing.wav")), audio.ErrFileOpen)
	assert.ErrorIs(t, run(t, "--rate", "1000", "tone"), audio.ErrConfiguration)
	assert.Error(t, run(t, "play"))
}
