package orchestrator

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/mapstate"
	"github.com/5t0n3/spacepaint/internal/protocol"
	"github.com/5t0n3/spacepaint/internal/session"
)

type fakeSink struct {
	sent []protocol.Packet
}

func (f *fakeSink) Send(p protocol.Packet) error {
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestNewClientIdVaries(t *testing.T) {
	a, err := NewClientId()
	if err != nil {
		t.Fatalf("NewClientId: %v", err)
	}
	b, err := NewClientId()
	if err != nil {
		t.Fatalf("NewClientId: %v", err)
	}
	if a == b {
		t.Errorf("NewClientId returned the same value twice: %d", a)
	}
}

func TestSubmitModificationFIFO(t *testing.T) {
	o := New(mapstate.New(), nil, zerolog.Nop(), WithModificationQueueCapacity(3))

	for i := uint64(1); i <= 3; i++ {
		if err := o.SubmitModification(i, protocol.Modification(protocol.ModificationHeat, nil, 1)); err != nil {
			t.Fatalf("SubmitModification(%d): %v", i, err)
		}
	}

	for want := uint64(1); want <= 3; want++ {
		got := <-o.modifications
		if got.clientId != want {
			t.Errorf("dequeued client id %d, want %d (FIFO violated)", got.clientId, want)
		}
	}
}

func TestSetViewportUpdatesKnownSession(t *testing.T) {
	o := New(mapstate.New(), nil, zerolog.Nop())
	sess := &session.Session{ClientId: 1, Sink: &fakeSink{}}
	o.Registry().Insert(sess)

	rect := common.Rect{
		TopLeft:     common.LatLong{Lat: 5, Long: 5},
		BottomRight: common.LatLong{Lat: -5, Long: 15},
	}
	o.SetViewport(1, rect)

	if got := sess.Viewport(); got != rect {
		t.Errorf("Viewport() = %v, want %v", got, rect)
	}
}

func TestSetViewportUnknownClientIdIsNoop(t *testing.T) {
	o := New(mapstate.New(), nil, zerolog.Nop())

	// Must not panic even though no session with this id was ever
	// inserted; the orchestrator logs a warning and returns.
	o.SetViewport(999, common.Rect{})
}

func TestSubmitModificationAfterQuitFails(t *testing.T) {
	o := New(mapstate.New(), nil, zerolog.Nop(), WithModificationQueueCapacity(1))

	// Fill the capacity-1 queue so the next send would otherwise block.
	if err := o.SubmitModification(1, protocol.Modification(protocol.ModificationHeat, nil, 1)); err != nil {
		t.Fatalf("SubmitModification(1): %v", err)
	}
	o.Quit()

	if err := o.SubmitModification(2, protocol.Modification(protocol.ModificationHeat, nil, 1)); err == nil {
		t.Fatal("expected ChannelClosed once the queue is full and the orchestrator has quit")
	}
}
