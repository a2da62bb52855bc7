package orchestrator

import (
	"time"

	"github.com/rs/zerolog"
)

// metrics tracks tick throughput and session counts, logging a summary at
// a fixed interval the way a frame profiler would, but counting map ticks
// and connected clients instead of frames and heap usage.
type metrics struct {
	log            zerolog.Logger
	tickCount      int
	lastTime       time.Time
	updateInterval time.Duration
}

func newMetrics(log zerolog.Logger) *metrics {
	return &metrics{
		log:            log,
		lastTime:       time.Now(),
		updateInterval: time.Second * 10,
	}
}

// recordTick should be called once per completed map tick. It logs a
// summary line when the update interval has elapsed.
func (m *metrics) recordTick(sessionCount, queueDepth int) {
	m.tickCount++
	now := time.Now()
	elapsed := now.Sub(m.lastTime)
	if elapsed < m.updateInterval {
		return
	}

	ticksPerSec := float64(m.tickCount) / elapsed.Seconds()
	m.log.Info().
		Float64("ticks_per_sec", ticksPerSec).
		Int("sessions", sessionCount).
		Int("queue_depth", queueDepth).
		Msg("orchestrator tick summary")

	m.tickCount = 0
	m.lastTime = now
}
