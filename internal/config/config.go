// SPDX-License-Identifier: EPL-2.0

// Package config loads the CLI configuration from a YAML file, the
// environment (AUDBRIDGE_ prefix) and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ik5/audbridge/audio"
	"github.com/ik5/audbridge/internal/logger"
)

const EnvPrefix = "AUDBRIDGE"

type Config struct {
	Audio    AudioConfig    `mapstructure:"audio"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Player   PlayerConfig   `mapstructure:"player"`
	Logging  logger.Config  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AudioConfig struct {
	// Backend is one of "virtual", "malgo" or "portaudio".
	Backend           string `mapstructure:"backend"`
	SampleRate        int    `mapstructure:"sample_rate"`
	Channels          int    `mapstructure:"channels"`
	BitsPerSample     int    `mapstructure:"bits_per_sample"`
	FramesPerCallback int    `mapstructure:"frames_per_callback"`
	InputChannels     int    `mapstructure:"input_channels"`
}

type RecorderConfig struct {
	QueueBlocks  int           `mapstructure:"queue_blocks"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Tap is "output" or "input".
	Tap string `mapstructure:"tap"`
}

type PlayerConfig struct {
	QueueBlocks     int           `mapstructure:"queue_blocks"`
	MaxDecodeErrors int           `mapstructure:"max_decode_errors"`
	PrefillTimeout  time.Duration `mapstructure:"prefill_timeout"`
}

type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint; empty disables it.
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	d := audio.DefaultStreamConfig()
	v.SetDefault("audio.backend", "malgo")
	v.SetDefault("audio.sample_rate", d.SampleRate)
	v.SetDefault("audio.channels", d.Channels)
	v.SetDefault("audio.bits_per_sample", d.BitsPerSample)
	v.SetDefault("audio.frames_per_callback", d.FramesPerCallback)
	v.SetDefault("audio.input_channels", 0)

	v.SetDefault("recorder.queue_blocks", 64)
	v.SetDefault("recorder.drain_timeout", 2*time.Second)
	v.SetDefault("recorder.poll_interval", 5*time.Millisecond)
	v.SetDefault("recorder.tap", "output")

	v.SetDefault("player.queue_blocks", 32)
	v.SetDefault("player.max_decode_errors", 8)
	v.SetDefault("player.prefill_timeout", 250*time.Millisecond)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.outputs", []string{"stderr"})
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.addr", "")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v when it is set, or searches the usual locations for
// config.yaml. A missing config file is not an error unless path was given.
func Load(v *viper.Viper, path string) (Config, error) {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/audbridge")
		v.AddConfigPath("/etc/audbridge")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Stream().Validate(); err != nil {
		return err
	}
	switch c.Audio.Backend {
	case "virtual", "malgo", "portaudio":
	default:
		return fmt.Errorf("%w: unknown audio backend %q", audio.ErrConfiguration, c.Audio.Backend)
	}
	switch c.Recorder.Tap {
	case "output":
	case "input":
		if c.Audio.InputChannels == 0 {
			return fmt.Errorf("%w: input tap needs audio.input_channels", audio.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown recorder tap %q", audio.ErrConfiguration, c.Recorder.Tap)
	}
	return nil
}

// Stream is the audio section as a stream config.
func (c Config) Stream() audio.StreamConfig {
	return audio.StreamConfig{
		SampleRate:        c.Audio.SampleRate,
		Channels:          c.Audio.Channels,
		BitsPerSample:     c.Audio.BitsPerSample,
		FramesPerCallback: c.Audio.FramesPerCallback,
		InputChannels:     c.Audio.InputChannels,
	}
}
