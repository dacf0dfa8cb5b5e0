// SPDX-License-Identifier: EPL-2.0

package audio

// SampleSource is a pull-model generator the render engine calls on the
// hardware thread. GenerateSamples must fill buf.Frames frames of every
// channel before the callback deadline, without blocking or allocating.
// A non-nil error makes the engine substitute silence for that callback;
// return sentinel errors (such as ErrSourceFailed) so failing is allocation free.
type SampleSource interface {
	GenerateSamples(buf SampleBuffer) error
}

// SourceFunc adapts a plain function to SampleSource.
type SourceFunc func(buf SampleBuffer) error

func (f SourceFunc) GenerateSamples(buf SampleBuffer) error { return f(buf) }
