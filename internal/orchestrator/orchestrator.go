// Package orchestrator owns the single global lock guarding the map state
// and the session registry, and runs the background tasks that advance the
// simulation, apply client edits, broadcast previews, and checkpoint state
// to disk. It is the only package that holds both a *mapstate.Map and a
// *session.Registry at once.
package orchestrator

import (
	"crypto/rand"
	"encoding/binary"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/rs/zerolog"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/gpu"
	"github.com/5t0n3/spacepaint/internal/mapstate"
	"github.com/5t0n3/spacepaint/internal/protocol"
	"github.com/5t0n3/spacepaint/internal/session"
)

const (
	defaultTickInterval              = 500 * time.Millisecond
	defaultCheckpointInterval        = 10 * time.Second
	defaultCheckpointPath            = "state.png"
	defaultModificationQueueCapacity = 50

	// broadcastQueueCapacity accommodates a full registry's worth of
	// per-session snapshot tasks with headroom.
	broadcastQueueCapacity = 256
	broadcastIdleTimeout   = 1 * time.Second
)

// modificationRequest pairs an incoming Modification packet with the
// client that sent it, so a future audit log or per-client rate limit has
// somewhere to hook in.
type modificationRequest struct {
	clientId uint64
	packet   protocol.Packet
}

// Orchestrator coordinates map state, the GPU pipeline, the session
// registry, and the background tasks that tie them together.
type Orchestrator struct {
	mu       sync.Mutex // guards mapState and registry together
	mapState *mapstate.Map
	registry *session.Registry

	modifications             chan modificationRequest
	modificationQueueCapacity int

	tickInterval       time.Duration
	checkpointInterval time.Duration
	checkpointPath     string

	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup

	// broadcastPool runs each session's crop/resize/PNG-encode/send as an
	// independent task during a tick broadcast; these workers persist
	// across ticks rather than spawning fresh goroutines every 500ms.
	broadcastPool worker.DynamicWorkerPool

	metrics *metrics
	log     zerolog.Logger
}

// New builds an Orchestrator around an already-loaded map and an
// already-initialized GPU pipeline. p is attached to m via SetPipeline; pass
// nil only in tests that never call a path reaching Map.Tick. The
// orchestrator does not start any goroutines until Run is called.
func New(m *mapstate.Map, p gpu.Pipeline, log zerolog.Logger, opts ...Option) *Orchestrator {
	if p != nil {
		m.SetPipeline(p)
	}

	o := &Orchestrator{
		mapState:                  m,
		registry:                  session.NewRegistry(),
		modificationQueueCapacity: defaultModificationQueueCapacity,
		tickInterval:              defaultTickInterval,
		checkpointInterval:        defaultCheckpointInterval,
		checkpointPath:            defaultCheckpointPath,
		quitChannel:               make(chan struct{}),
		broadcastPool:             worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), broadcastQueueCapacity, broadcastIdleTimeout),
		log:                       log,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.modifications = make(chan modificationRequest, o.modificationQueueCapacity)
	o.metrics = newMetrics(log)

	return o
}

// Registry exposes the session registry so the HTTP layer can register and
// remove connections.
func (o *Orchestrator) Registry() *session.Registry {
	return o.registry
}

// Run launches the modification applier, the tick/broadcast loop, and the
// checkpoint loop, and blocks until Quit is called.
func (o *Orchestrator) Run() {
	o.wg.Add(3)
	go o.runApplier()
	go o.runTicker()
	go o.runCheckpointer()
	o.wg.Wait()
}

// Quit signals every background task to stop. Safe to call more than
// once; later calls are no-ops.
func (o *Orchestrator) Quit() {
	o.quitOnce.Do(func() {
		close(o.quitChannel)
	})
}

// NewClientId generates a CSPRNG client id. Collisions are astronomically
// unlikely at this scale, but New callers should still check Registry.Get
// before assuming uniqueness in adversarial settings.
func NewClientId() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// SubmitModification enqueues a client's draw request for the applier
// task. It blocks if the bounded queue is full, applying backpressure to
// the connection's read loop rather than dropping or reordering edits.
func (o *Orchestrator) SubmitModification(clientId uint64, p protocol.Packet) error {
	select {
	case o.modifications <- modificationRequest{clientId: clientId, packet: p}:
		return nil
	case <-o.quitChannel:
		return &ChannelClosed{Channel: "modifications"}
	}
}

// SetViewport looks up the session named by clientId under the global lock
// and updates the rectangle it wants snapshots for, warning if the id is
// unknown (e.g. the session already disconnected).
func (o *Orchestrator) SetViewport(clientId uint64, rect common.Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.registry.Get(clientId)
	if !ok {
		o.log.Warn().Uint64("client_id", clientId).Msg("viewport update for unknown client id")
		return
	}
	sess.SetViewport(rect)
}

// runApplier consumes the bounded modification queue in strict FIFO order
// and applies each one to the map state under the global lock.
func (o *Orchestrator) runApplier() {
	defer o.wg.Done()

	for {
		select {
		case <-o.quitChannel:
			return
		case req := <-o.modifications:
			o.mu.Lock()
			if err := o.mapState.ApplyModification(req.packet.ModKind, req.packet.Points, req.packet.BrushSizeDegrees); err != nil {
				o.log.Warn().Err(err).Uint64("client_id", req.clientId).Msg("failed to apply modification")
			}
			o.mu.Unlock()
		}
	}
}

// runTicker advances the simulation through the GPU pipeline and
// broadcasts a fresh snapshot to every connected session once per
// tickInterval.
func (o *Orchestrator) runTicker() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.quitChannel:
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *Orchestrator) tick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.mapState.Tick(1); err != nil {
		o.log.Error().Err(err).Msg("tick failed, skipping broadcast")
		return
	}

	o.broadcastSnapshots()
	o.metrics.recordTick(o.registry.Len(), len(o.modifications))
}

// broadcastSnapshots renders and sends each session its own cropped preview
// of the viewport it last requested. Must be called with mu held: each
// session's crop/resize/PNG-encode work fans out onto the broadcast worker
// pool, but RenderCropped only reads m.buf, which is safe to do concurrently
// as long as nothing mutates it for the duration (guaranteed by mu). A
// WaitGroup provides the per-tick barrier, since pool.Wait() blocks until
// workers idle-exit, which doesn't fit a fixed-interval workload.
func (o *Orchestrator) broadcastSnapshots() {
	var wg sync.WaitGroup
	taskID := 0

	o.registry.Each(func(s *session.Session) {
		wg.Add(1)
		sess := s
		id := taskID
		taskID++

		o.broadcastPool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()

				image, coverage, err := o.mapState.RenderCropped(sess.Viewport())
				if err != nil {
					o.log.Warn().Err(err).Uint64("client_id", sess.ClientId).Msg("failed to render snapshot")
					return nil, nil
				}
				if err := sess.Sink.Send(protocol.Snapshot(image, coverage)); err != nil {
					o.log.Warn().Err(err).Uint64("client_id", sess.ClientId).Msg("failed to send snapshot")
				}
				return nil, nil
			},
		})
	})

	wg.Wait()
}

// runCheckpointer persists the map state to disk once per
// checkpointInterval, so a restart resumes from recent state rather than a
// blank map.
func (o *Orchestrator) runCheckpointer() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.quitChannel:
			return
		case <-ticker.C:
			o.checkpoint()
		}
	}
}

func (o *Orchestrator) checkpoint() {
	snapshot := mapstate.New()
	o.mu.Lock()
	err := snapshot.SetBytes(o.mapState.Bytes())
	o.mu.Unlock()
	if err != nil {
		o.log.Error().Err(err).Msg("checkpoint failed to copy map state")
		return
	}

	if err := snapshot.SaveToPNG(o.checkpointPath); err != nil {
		o.log.Error().Err(err).Str("path", o.checkpointPath).Msg("checkpoint failed")
	}
}
