// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes bridge statistics to Prometheus. Values are read
// from the bridge at scrape time, so nothing on the render path touches
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik5/audbridge"
)

const namespace = "audbridge"

// StatsSource is implemented by *audbridge.Bridge.
type StatsSource interface {
	Stats() audbridge.Stats
}

// Collector is a prometheus.Collector over a StatsSource.
type Collector struct {
	src StatsSource

	state          *prometheus.Desc
	callbacks      *prometheus.Desc
	frames         *prometheus.Desc
	silent         *prometheus.Desc
	sourceFailures *prometheus.Desc
	panics         *prometheus.Desc
	tapOverruns    *prometheus.Desc
	renderFaults   *prometheus.Desc

	recFramesWritten *prometheus.Desc
	recDropped       *prometheus.Desc
	recQueued        *prometheus.Desc

	playFrames       *prometheus.Desc
	playUnderruns    *prometheus.Desc
	playDecodeErrors *prometheus.Desc
	playQueued       *prometheus.Desc
}

func NewCollector(src StatsSource) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	return &Collector{
		src: src,

		state:          desc("", "state", "1 for the current bridge state.", "state"),
		callbacks:      desc("engine", "callbacks_total", "Render callbacks served since the stream was opened."),
		frames:         desc("engine", "frames_total", "Frames rendered since the stream was opened."),
		silent:         desc("engine", "silent_callbacks_total", "Callbacks rendered as silence."),
		sourceFailures: desc("engine", "source_failures_total", "Callbacks where the sample source returned an error."),
		panics:         desc("engine", "source_panics_total", "Callbacks where the sample source panicked."),
		tapOverruns:    desc("engine", "tap_overruns_total", "Recording blocks dropped by the tap."),
		renderFaults:   desc("engine", "host_faults_total", "Faults reported by the audio host."),

		recFramesWritten: desc("recorder", "frames_written", "Frames written to the current recording file."),
		recDropped:       desc("recorder", "dropped_frames", "Frames lost from the current recording."),
		recQueued:        desc("recorder", "queued_blocks", "Blocks waiting to be written."),

		playFrames:       desc("player", "frames_rendered", "Frames of the current file rendered."),
		playUnderruns:    desc("player", "underruns", "Callbacks the current file could not fill in time."),
		playDecodeErrors: desc("player", "decode_errors", "Decode errors in the current file."),
		playQueued:       desc("player", "queued_blocks", "Decoded blocks waiting to be rendered."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.state, c.callbacks, c.frames, c.silent, c.sourceFailures, c.panics, c.tapOverruns, c.renderFaults,
		c.recFramesWritten, c.recDropped, c.recQueued,
		c.playFrames, c.playUnderruns, c.playDecodeErrors, c.playQueued,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	for _, s := range []audbridge.State{audbridge.Idle, audbridge.Playing, audbridge.Recording, audbridge.PlayingAndRecording} {
		v := 0.0
		if s == st.State {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, s.String())
	}

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	e := st.Engine
	counter(c.callbacks, e.Callbacks)
	counter(c.frames, e.Frames)
	counter(c.silent, e.Silent)
	counter(c.sourceFailures, e.SourceFailures)
	counter(c.panics, e.Panics)
	counter(c.tapOverruns, e.TapOverruns)
	counter(c.renderFaults, e.RenderFaults)

	// Session metrics reset with every recording and playback, so they are
	// gauges.
	if st.Recording {
		r := st.Recorder
		gauge(c.recFramesWritten, float64(r.FramesWritten))
		gauge(c.recDropped, float64(r.DroppedFrames))
		gauge(c.recQueued, float64(r.Queued))
	}
	if st.Playback {
		p := st.Player
		gauge(c.playFrames, float64(p.FramesRendered))
		gauge(c.playUnderruns, float64(p.Underruns))
		gauge(c.playDecodeErrors, float64(p.DecodeErrors))
		gauge(c.playQueued, float64(p.Queued))
	}
}

// Register creates a Collector for src on reg.
func Register(reg prometheus.Registerer, src StatsSource) (*Collector, error) {
	c := NewCollector(src)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
