// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audbridge"
	"github.com/ik5/audbridge/engine"
	"github.com/ik5/audbridge/hal"
	halmalgo "github.com/ik5/audbridge/hal/malgo"
	halportaudio "github.com/ik5/audbridge/hal/portaudio"
	"github.com/ik5/audbridge/hal/virtual"
	"github.com/ik5/audbridge/internal/config"
	"github.com/ik5/audbridge/internal/logger"
	"github.com/ik5/audbridge/internal/metrics"
	"github.com/ik5/audbridge/player"
	"github.com/ik5/audbridge/recorder"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *slog.Logger
}

func rootCommand() *cobra.Command {
	a := &app{v: config.New()}
	var configPath string

	root := &cobra.Command{
		Use:           "audbridge",
		Short:         "Real-time audio bridge: tones, playback and recording",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default searches ./config.yaml, ~/.config/audbridge, /etc/audbridge)")
	flags.String("backend", "", "audio backend: virtual, malgo or portaudio")
	flags.Int("rate", 0, "stream sample rate in Hz")
	flags.Int("channels", 0, "output channels")
	flags.Int("frames", 0, "frames per callback")
	flags.Int("input-channels", 0, "input channels to open for capture")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("metrics-addr", "", "listen address for /metrics, empty to disable")

	for key, flag := range map[string]string{
		"audio.backend":             "backend",
		"audio.sample_rate":         "rate",
		"audio.channels":            "channels",
		"audio.frames_per_callback": "frames",
		"audio.input_channels":      "input-channels",
		"logging.level":             "log-level",
		"metrics.addr":              "metrics-addr",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(a.v, configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg

		if err := logger.Init(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logger = logger.Logger()
		return nil
	}
	root.PersistentPostRunE = func(*cobra.Command, []string) error {
		return logger.Close()
	}

	root.AddCommand(
		toneCommand(a),
		playCommand(a),
		recordCommand(a),
	)
	return root
}

func (a *app) driver() (hal.Driver, error) {
	switch a.cfg.Audio.Backend {
	case "virtual":
		return virtual.New(virtual.Options{Clocked: true}), nil
	case "malgo":
		return halmalgo.New(a.logger), nil
	case "portaudio":
		return halportaudio.New(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", a.cfg.Audio.Backend)
	}
}

// bridge initializes the process wide bridge and the metrics endpoint. The
// returned function tears both down.
func (a *app) bridge(ctx context.Context) (*audbridge.Bridge, func(), error) {
	drv, err := a.driver()
	if err != nil {
		return nil, nil, err
	}

	tap := engine.TapOutput
	if a.cfg.Recorder.Tap == "input" {
		tap = engine.TapInput
	}

	b, err := audbridge.Init(a.cfg.Stream(),
		audbridge.WithDriver(drv),
		audbridge.WithLogger(a.logger),
		audbridge.WithTapMode(tap),
		audbridge.WithRecordQueueBlocks(a.cfg.Recorder.QueueBlocks),
		audbridge.WithRecorderOptions(recorder.Options{
			DrainTimeout: a.cfg.Recorder.DrainTimeout,
			PollInterval: a.cfg.Recorder.PollInterval,
		}),
		audbridge.WithPlayerOptions(player.Options{
			QueueBlocks:     a.cfg.Player.QueueBlocks,
			MaxDecodeErrors: a.cfg.Player.MaxDecodeErrors,
		}),
		audbridge.WithPrefillTimeout(a.cfg.Player.PrefillTimeout),
	)
	if err != nil {
		return nil, nil, err
	}

	a.logger.Info("bridge ready",
		"backend", drv.Name(),
		"sample_rate", a.cfg.Audio.SampleRate,
		"channels", a.cfg.Audio.Channels,
		"frames_per_callback", a.cfg.Audio.FramesPerCallback)

	stopMetrics, err := a.serveMetrics(ctx, b)
	if err != nil {
		_ = audbridge.Teardown()
		return nil, nil, err
	}

	return b, func() {
		stopMetrics()
		if err := audbridge.Teardown(); err != nil {
			a.logger.Error("bridge teardown", "error", err)
		}
	}, nil
}

func (a *app) serveMetrics(ctx context.Context, b *audbridge.Bridge) (func(), error) {
	if a.cfg.Metrics.Addr == "" {
		return func() {}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if _, err := metrics.Register(reg, b); err != nil {
		return nil, fmt.Errorf("registering bridge metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}

// report logs errors collected by the bridge in the background.
func (a *app) report(b *audbridge.Bridge) {
	if err := b.Poll(); err != nil {
		a.logger.Warn("background error", "error", err)
	}
}

// wait blocks until ctx is done or d elapses; d <= 0 waits for ctx only.
// tick runs every interval and stops the wait when it returns false.
func wait(ctx context.Context, d, interval time.Duration, tick func() bool) {
	var deadline <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		deadline = t.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			if !tick() {
				return
			}
		}
	}
}
