// SPDX-License-Identifier: EPL-2.0

package audbridge

// State is the bridge state machine.
type State int32

const (
	Idle State = iota
	Playing
	Recording
	PlayingAndRecording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Recording:
		return "recording"
	case PlayingAndRecording:
		return "playing+recording"
	default:
		return "unknown"
	}
}

// IsPlaying reports whether the state includes playing.
func (s State) IsPlaying() bool { return s == Playing || s == PlayingAndRecording }

// IsRecording reports whether the state includes recording.
func (s State) IsRecording() bool { return s == Recording || s == PlayingAndRecording }

func stateOf(playing, recording bool) State {
	switch {
	case playing && recording:
		return PlayingAndRecording
	case playing:
		return Playing
	case recording:
		return Recording
	default:
		return Idle
	}
}
