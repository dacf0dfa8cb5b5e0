// SPDX-License-Identifier: EPL-2.0

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/audbridge/generator"
)

func recordCommand(a *app) *cobra.Command {
	var (
		duration time.Duration
		tone     float64
	)

	cmd := &cobra.Command{
		Use:   "record FILE|URL",
		Short: "Record the stream into a WAV file",
		Long: "Record the rendered output (or, with recorder.tap=input, the hardware input)\n" +
			"into a WAV file at the stream's rate, channel count and bit depth.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, done, err := a.bridge(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if tone > 0 {
				b.SetSampleSource(generator.NewSine(a.cfg.Audio.SampleRate, tone, 0.5))
			}

			if err := b.CreateRecordingFile(args[0]); err != nil {
				return err
			}
			if err := b.StartRecord(); err != nil {
				return err
			}

			wait(cmd.Context(), duration, time.Second, func() bool {
				if st := b.Stats().Recorder; st.DroppedFrames > 0 {
					a.logger.Warn("recording is dropping frames", "dropped", st.DroppedFrames)
				}
				return true
			})

			st := b.Stats().Recorder
			if err := b.StopRecord(); err != nil {
				return err
			}
			a.logger.Info("recording finished", "path", args[0], "frames", st.FramesWritten)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Float64Var(&tone, "tone", 0, "render a sine tone of this frequency while recording")
	return cmd
}
