// SPDX-License-Identifier: EPL-2.0

package audbridge

import (
	"sync"

	"github.com/ik5/audbridge/audio"
)

var (
	sharedMu sync.Mutex
	shared   *Bridge
)

// Init creates the process-wide bridge. It fails with ErrAlreadyInitialized
// until Teardown is called.
func Init(cfg audio.StreamConfig, opts ...Option) (*Bridge, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return nil, ErrAlreadyInitialized
	}
	shared = New(cfg, opts...)
	return shared, nil
}

// Shared returns the process-wide bridge created by Init.
func Shared() (*Bridge, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return nil, ErrNotInitialized
	}
	return shared, nil
}

// Teardown closes the process-wide bridge and forgets it.
func Teardown() error {
	sharedMu.Lock()
	b := shared
	shared = nil
	sharedMu.Unlock()

	if b == nil {
		return ErrNotInitialized
	}
	return b.Close()
}
