// Package session tracks the set of connected clients. A Session pairs a
// client id with an outbound sink the orchestrator uses to push Snapshot
// packets without knowing anything about WebSockets.
package session

import (
	"fmt"
	"sync"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/protocol"
)

// OutboundSink delivers an encoded Packet to one connected client. An
// implementation backed by a WebSocket connection lives in the
// orchestrator package; tests use a slice-backed fake.
type OutboundSink interface {
	Send(p protocol.Packet) error
	Close() error
}

// SendError wraps a failure pushing a packet to a client's sink. Always
// recoverable: the orchestrator logs a failed send and leaves the session
// registered; the session is removed when its connection's read loop ends.
type SendError struct {
	ClientId uint64
	Cause    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("session: send to client %d failed: %v", e.ClientId, e.Cause)
}

func (e *SendError) Unwrap() error { return e.Cause }

// Session is one connected client: its id, its current viewport, and the
// sink used to deliver it snapshots.
type Session struct {
	ClientId uint64
	Sink     OutboundSink

	mu       sync.Mutex
	viewport common.Rect
}

// SetViewport updates the rectangle this session wants snapshots for.
func (s *Session) SetViewport(r common.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = r
}

// Viewport returns the rectangle this session currently wants snapshots
// for.
func (s *Session) Viewport() common.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Registry is the set of currently connected sessions, keyed by client id.
// Callers needing atomicity across the registry and the map state hold an
// external lock; Registry's own lock only protects its internal map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uint64]*Session)}
}

// Insert adds a session, replacing any existing session with the same
// client id.
func (r *Registry) Insert(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ClientId] = s
}

// Remove drops a session from the registry. It does not close the
// session's sink; the caller does that.
func (r *Registry) Remove(clientId uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientId)
}

// Get returns the session for a client id, if any.
func (r *Registry) Get(clientId uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[clientId]
	return s, ok
}

// Len returns the number of connected sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Each calls fn for every currently connected session. fn must not call
// back into the Registry.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		fn(s)
	}
}
