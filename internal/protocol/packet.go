// Package protocol defines the wire format exchanged between a client and
// the orchestrator over a single WebSocket connection: a small tagged union
// of packets, encoded self-describing so a decoder never needs out-of-band
// type information.
package protocol

import (
	"github.com/5t0n3/spacepaint/common"
)

// Kind tags which variant a Packet holds.
type Kind uint8

const (
	KindAssignId Kind = iota
	KindSnapshot
	KindModification
	KindViewport
)

func (k Kind) String() string {
	switch k {
	case KindAssignId:
		return "assign_id"
	case KindSnapshot:
		return "snapshot"
	case KindModification:
		return "modification"
	case KindViewport:
		return "viewport"
	default:
		return "unknown"
	}
}

// ModificationKind names the kind of edit a client draws onto the map.
// Wind is accepted on the wire but is a documented no-op: early clients
// send it, but wind is treated as a derived field the simulation computes
// itself, not something a user can paint directly.
type ModificationKind uint8

const (
	ModificationHeat ModificationKind = iota
	ModificationCool
	ModificationHumidify
	ModificationDehumidify
	ModificationWind
)

// Channel returns the map channel this modification kind writes to, and
// whether the kind is actually appliable (false for Wind).
func (k ModificationKind) Channel() (channel int, sign int, ok bool) {
	switch k {
	case ModificationHeat:
		return 0, 1, true
	case ModificationCool:
		return 0, -1, true
	case ModificationHumidify:
		return 3, 1, true
	case ModificationDehumidify:
		return 3, -1, true
	case ModificationWind:
		return 0, 0, false
	default:
		return 0, 0, false
	}
}

// Packet is the self-describing tagged union exchanged over the socket.
// Only the payload fields of the variant selected by Kind are populated;
// ClientId is shared by the AssignId and Viewport variants.
type Packet struct {
	Kind Kind `cbor:"kind"`

	// AssignId payload: the server's first frame to a new connection.
	ClientId uint64 `cbor:"client_id,omitempty"`

	// Snapshot payload: a cropped, resized PNG preview plus the
	// (lat,long) rectangle it actually covers after snapping to pixels.
	Image    []byte     `cbor:"image,omitempty"`
	Coverage common.Rect `cbor:"coverage,omitempty"`

	// Modification payload: a client's request to draw on the map.
	ModKind          ModificationKind `cbor:"mod_kind,omitempty"`
	Points           []common.LatLong `cbor:"points,omitempty"`
	BrushSizeDegrees float64          `cbor:"brush_size_degrees,omitempty"`

	// Viewport payload: a client's request to change which rectangle of
	// the map it wants snapshots for. ClientId identifies which session's
	// viewport to update.
	Viewport common.Rect `cbor:"viewport,omitempty"`
}

// AssignId builds the server's initial handshake packet.
func AssignId(clientId uint64) Packet {
	return Packet{Kind: KindAssignId, ClientId: clientId}
}

// Snapshot builds a broadcast/periodic preview packet.
func Snapshot(image []byte, coverage common.Rect) Packet {
	return Packet{Kind: KindSnapshot, Image: image, Coverage: coverage}
}

// Modification builds a client draw-request packet.
func Modification(kind ModificationKind, points []common.LatLong, brushSizeDegrees float64) Packet {
	return Packet{
		Kind:             KindModification,
		ModKind:          kind,
		Points:           points,
		BrushSizeDegrees: brushSizeDegrees,
	}
}

// Viewport builds a client viewport-change-request packet.
func Viewport(clientId uint64, rect common.Rect) Packet {
	return Packet{Kind: KindViewport, ClientId: clientId, Viewport: rect}
}
