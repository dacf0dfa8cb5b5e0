// SPDX-License-Identifier: EPL-2.0

package main

import (
	"time"

	"github.com/spf13/cobra"
)

func playCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play FILE|URL",
		Short: "Play a WAV, AIFF, MP3 or Ogg Vorbis file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, done, err := a.bridge(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := b.SetPlaybackURL(args[0]); err != nil {
				return err
			}
			if err := b.StartPlayback(); err != nil {
				return err
			}

			wait(cmd.Context(), 0, 100*time.Millisecond, func() bool {
				a.report(b)
				return b.IsPlaying()
			})

			if err := b.StopPlayback(); err != nil {
				return err
			}
			a.report(b)
			return nil
		},
	}
}
