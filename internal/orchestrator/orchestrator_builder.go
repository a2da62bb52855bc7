package orchestrator

import (
	"time"

	"github.com/5t0n3/spacepaint/common"
)

// Option is a functional option for configuring an Orchestrator. Use the
// With* functions to build a list of options and pass them to New.
type Option func(*Orchestrator)

// WithTickInterval sets how often the orchestrator advances the map state
// and broadcasts snapshots. d <= 0 leaves the current value (default
// 500ms) in place.
func WithTickInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d <= 0 {
			d = 0
		}
		o.tickInterval = common.Coalesce(d, o.tickInterval)
	}
}

// WithCheckpointInterval sets how often the map state is persisted to
// disk. d <= 0 leaves the current value (default 10s) in place.
func WithCheckpointInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d <= 0 {
			d = 0
		}
		o.checkpointInterval = common.Coalesce(d, o.checkpointInterval)
	}
}

// WithCheckpointPath sets the file the map state is periodically saved to.
// An empty path leaves the current value (default "state.png") in place.
func WithCheckpointPath(path string) Option {
	return func(o *Orchestrator) {
		o.checkpointPath = common.Coalesce(path, o.checkpointPath)
	}
}

// WithModificationQueueCapacity bounds the number of pending modifications
// buffered between the connection handlers and the applier task. n <= 0
// leaves the current value (default 50) in place.
func WithModificationQueueCapacity(n int) Option {
	return func(o *Orchestrator) {
		if n <= 0 {
			n = 0
		}
		o.modificationQueueCapacity = common.Coalesce(n, o.modificationQueueCapacity)
	}
}
