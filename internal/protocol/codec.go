package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building cbor encode mode: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: building cbor decode mode: %v", err))
	}
}

// Encode serializes a Packet to its wire form.
func Encode(p Packet) ([]byte, error) {
	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, &BadPacket{Cause: err}
	}
	return data, nil
}

// Decode parses a wire frame into a Packet and sanity-checks the payload
// for the Kind it claims to hold.
func Decode(data []byte) (Packet, error) {
	var p Packet
	if err := decMode.Unmarshal(data, &p); err != nil {
		return Packet{}, &BadPacket{Cause: err}
	}

	switch p.Kind {
	case KindModification:
		if len(p.Points) == 0 {
			return Packet{}, &BadPacket{Cause: fmt.Errorf("modification packet with no points")}
		}
		if p.BrushSizeDegrees <= 0 {
			return Packet{}, &BadPacket{Cause: fmt.Errorf("modification packet with non-positive brush size")}
		}
	case KindViewport:
		// zero-value Rect is a legitimate (if useless) request; nothing to validate.
	case KindAssignId, KindSnapshot:
		// server-to-client only; a client sending one is simply ignored upstream.
	default:
		return Packet{}, &BadPacket{Cause: fmt.Errorf("unknown packet kind %d", p.Kind)}
	}

	return p, nil
}
