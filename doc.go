// SPDX-License-Identifier: EPL-2.0

// Package audbridge connects a pull-based sample source to an audio output
// stream and runs file recording and playback alongside it.
//
// A Bridge owns one render engine (package engine) driving a HAL stream
// (package hal and its drivers). Control code publishes an
// audio.SampleSource; the engine pulls it on the HAL's real-time thread for
// every callback. Recording taps the rendered output, or the hardware input
// in capture mode, into a lock-free queue drained to a WAV file by a
// background writer (package recorder). Playback decodes a file ahead of time
// (package player) and temporarily replaces the source.
//
// # State machine
//
//	Idle --Start--> Playing --StartRecord--> PlayingAndRecording
//	Idle --StartRecord--> Recording --Start--> PlayingAndRecording
//	PlayingAndRecording --StopRecord--> Playing
//	Recording --StopRecord--> Idle
//	any --Stop--> Idle
//
// StartPlayback starts the stream when it is idle and playback reaching the
// end of its file stops it again, unless Start was called or a recording
// still needs it.
//
// # Quick start
//
//	b := audbridge.New(audio.DefaultStreamConfig(), audbridge.WithDriver(malgo.New(nil)))
//	defer b.Close()
//
//	b.SetSampleSource(generator.NewSine(44100, 440, 0.25))
//	if err := b.Start(); err != nil {
//	    return err
//	}
//
//	_ = b.CreateRecordingFile("file:///tmp/tone.wav")
//	_ = b.StartRecord()
//	time.Sleep(time.Second)
//	if err := b.StopRecord(); err != nil {
//	    return err // ErrIncompleteRecording, ErrRecordingIO
//	}
//
// # Errors
//
// Control operations return errors synchronously: ErrConfiguration from the
// operation that starts the stream, ErrFileCreate, ErrFileOpen and
// ErrUnsupportedFormat from the file operations. Trouble on the real-time
// path never becomes an error there; it is silence plus a counter in Stats.
// Background failures (decode errors, recording faults, discarded frames)
// are collected and returned by Poll.
//
// A process-wide instance is available through Init, Shared and Teardown;
// tests should use New.
package audbridge
