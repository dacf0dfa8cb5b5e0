// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"github.com/ik5/audbridge/engine"
	"github.com/ik5/audbridge/player"
	"github.com/ik5/audbridge/recorder"
)

// Stats is a snapshot of the bridge and whatever is active in it. Recorder
// and Player are zero unless recording or playback is running.
type Stats struct {
	State     State
	Engine    engine.Stats
	Recording bool
	Recorder  recorder.Stats
	Playback  bool
	Player    player.Stats
}

func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Stats{
		State:  b.State(),
		Engine: b.engine.Stats(),
	}
	if b.rec != nil {
		st.Recording = true
		st.Recorder = b.rec.Stats()
	}
	if b.playback != nil {
		st.Playback = true
		st.Player = b.playback.Stats()
	}
	return st
}
