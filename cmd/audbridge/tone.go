// SPDX-License-Identifier: EPL-2.0

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ik5/audbridge/generator"
)

func toneCommand(a *app) *cobra.Command {
	var (
		freq     float64
		gain     float32
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a sine tone until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, done, err := a.bridge(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			b.SetSampleSource(generator.NewSine(a.cfg.Audio.SampleRate, freq, gain))
			if err := b.Start(); err != nil {
				return err
			}

			wait(cmd.Context(), duration, time.Second, func() bool {
				a.report(b)
				return true
			})

			st := b.Stats().Engine
			a.logger.Info("tone stopped", "callbacks", st.Callbacks, "silent", st.Silent, "host_faults", st.RenderFaults)
			return b.Stop()
		},
	}

	cmd.Flags().Float64Var(&freq, "freq", 440, "frequency in Hz")
	cmd.Flags().Float32Var(&gain, "gain", 0.2, "gain between 0 and 1")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
