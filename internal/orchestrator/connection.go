package orchestrator

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/5t0n3/spacepaint/internal/protocol"
	"github.com/5t0n3/spacepaint/internal/session"
)

// writeQueueCapacity bounds how many outbound frames a slow client can have
// buffered before the oldest queued one is dropped to make room for a new
// one. Snapshot frames are transient state,
// not an event log, so dropping a stale one in favor of keeping up is
// correct rather than lossy.
const writeQueueCapacity = 4

// writeDeadline bounds a single WriteMessage call, as a backstop in case the
// connection stalls mid-write rather than refusing outright.
const writeDeadline = 5 * time.Second

var errSinkClosed = errors.New("orchestrator: sink closed")

// wsSink adapts a *websocket.Conn to session.OutboundSink. Send never blocks
// on network I/O: it hands the encoded frame to a buffered queue drained by
// a dedicated writer goroutine, so a stalled or slow reader on one
// connection cannot stall the orchestrator's lock, which is held across
// every session's Send call during a tick broadcast. mu guards closed so
// Send and Close can never race on a send to a closed queue.
type wsSink struct {
	conn  *websocket.Conn
	queue chan []byte

	mu     sync.Mutex
	closed bool
}

func newWsSink(conn *websocket.Conn) *wsSink {
	s := &wsSink{
		conn:  conn,
		queue: make(chan []byte, writeQueueCapacity),
	}
	go s.runWriter()
	return s
}

func (s *wsSink) runWriter() {
	for data := range s.queue {
		s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
}

func (s *wsSink) Send(p protocol.Packet) error {
	data, err := protocol.Encode(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}

	select {
	case s.queue <- data:
		return nil
	default:
		// Queue full: the writer is behind. Drop the oldest queued frame
		// in favor of this newer one rather than blocking the caller.
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- data:
		default:
		}
		return nil
	}
}

func (s *wsSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	return s.conn.Close()
}

// handleConnection is the per-connection read loop: it assigns a client
// id, registers a Session, sends the AssignId handshake, and then reads
// packets until the connection closes. Modification packets are handed to
// the orchestrator's bounded queue; Viewport packets are applied under the
// orchestrator's lock via SetViewport. This function is the "connection
// handler" background task; one instance runs per connected client, spawned
// by the HTTP layer.
func (o *Orchestrator) handleConnection(conn *websocket.Conn) {
	sink := newWsSink(conn)
	defer sink.Close()

	clientId, err := NewClientId()
	if err != nil {
		o.log.Error().Err(err).Msg("failed to generate client id")
		return
	}

	sess := &session.Session{ClientId: clientId, Sink: sink}
	o.mu.Lock()
	o.registry.Insert(sess)
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.registry.Remove(clientId)
		o.mu.Unlock()
	}()

	if err := sink.Send(protocol.AssignId(clientId)); err != nil {
		o.log.Warn().Err(err).Uint64("client_id", clientId).Msg("failed to send assign_id")
		return
	}

	o.log.Info().Uint64("client_id", clientId).Msg("client connected")
	defer o.log.Info().Uint64("client_id", clientId).Msg("client disconnected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		packet, err := protocol.Decode(data)
		if err != nil {
			o.log.Warn().Err(err).Uint64("client_id", clientId).Msg("dropping bad packet")
			continue
		}

		switch packet.Kind {
		case protocol.KindModification:
			if err := o.SubmitModification(clientId, packet); err != nil {
				return
			}
		case protocol.KindViewport:
			o.SetViewport(packet.ClientId, packet.Viewport)
		default:
			o.log.Warn().Uint64("client_id", clientId).Str("kind", packet.Kind.String()).Msg("ignoring unexpected packet kind from client")
		}
	}
}
