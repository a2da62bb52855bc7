package session

import (
	"testing"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/protocol"
)

type fakeSink struct {
	sent   []protocol.Packet
	closed bool
}

func (f *fakeSink) Send(p protocol.Packet) error {
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestRegistryInsertGetRemove(t *testing.T) {
	r := NewRegistry()
	s := &Session{ClientId: 1, Sink: &fakeSink{}}

	r.Insert(s)
	if got, ok := r.Get(1); !ok || got != s {
		t.Fatalf("Get(1) = (%v, %v), want (%v, true)", got, ok, s)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	r.Remove(1)
	if _, ok := r.Get(1); ok {
		t.Fatal("expected Get(1) to report not found after Remove")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestSessionViewportIdempotent(t *testing.T) {
	s := &Session{ClientId: 1, Sink: &fakeSink{}}
	rect := common.Rect{
		TopLeft:     common.LatLong{Lat: 10, Long: 10},
		BottomRight: common.LatLong{Lat: -10, Long: 30},
	}

	s.SetViewport(rect)
	first := s.Viewport()
	s.SetViewport(rect)
	second := s.Viewport()

	if first != second {
		t.Errorf("viewport changed across identical SetViewport calls: %v != %v", first, second)
	}
}

func TestRegistryEachVisitsAllSessions(t *testing.T) {
	r := NewRegistry()
	r.Insert(&Session{ClientId: 1, Sink: &fakeSink{}})
	r.Insert(&Session{ClientId: 2, Sink: &fakeSink{}})

	seen := make(map[uint64]bool)
	r.Each(func(s *Session) { seen[s.ClientId] = true })

	if !seen[1] || !seen[2] {
		t.Errorf("Each visited %v, want both 1 and 2", seen)
	}
}
