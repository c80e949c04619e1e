package reach

import (
	"testing"

	"github.com/reach-iot/reach-go/reach/wire"
)

func TestClassicEnvelopeRoundTrip(t *testing.T) {
	hdr := wire.Header{MessageType: uint32(wire.MsgPing), TransactionID: 5, RemainingObjects: 2}
	payload := []byte{1, 2, 3}

	frame, err := encodeEnvelope(nil, hdr, payload, FramingClassic)
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	if detectFraming(frame) != FramingClassic {
		t.Fatalf("detectFraming: expected Classic for field-1-first frame")
	}

	gotHdr, gotPayload, kind, err := decodeEnvelope(frame)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if kind != FramingClassic {
		t.Fatalf("kind = %v, want Classic", kind)
	}
	if gotHdr.TransactionID != 5 || gotHdr.RemainingObjects != 2 {
		t.Fatalf("header = %+v, mismatch", gotHdr)
	}
	if string(gotPayload) != string(payload) {
		t.Fatalf("payload = %v, want %v", gotPayload, payload)
	}
}

func TestAhsokaEnvelopeRoundTrip(t *testing.T) {
	hdr := wire.Header{MessageType: uint32(wire.MsgGetDeviceInfo), TransactionID: 9}
	payload := []byte{0xAA, 0xBB}

	frame, err := encodeEnvelope(nil, hdr, payload, FramingAhsoka)
	if err != nil {
		t.Fatalf("encodeEnvelope: %v", err)
	}
	if detectFraming(frame) != FramingAhsoka {
		t.Fatalf("detectFraming: expected Ahsoka for length-prefixed frame")
	}

	gotHdr, gotPayload, kind, err := decodeEnvelope(frame)
	if err != nil {
		t.Fatalf("decodeEnvelope: %v", err)
	}
	if kind != FramingAhsoka {
		t.Fatalf("kind = %v, want Ahsoka", kind)
	}
	if gotHdr.TransactionID != 9 {
		t.Fatalf("header = %+v, mismatch", gotHdr)
	}
	if string(gotPayload) != string(payload) {
		t.Fatalf("payload = %v, want %v", gotPayload, payload)
	}
}

func TestDecodePayloadUnknownMessageType(t *testing.T) {
	_, err := decodePayload(wire.MessageType(9999), nil)
	if CodeOf(err) != NotImplemented {
		t.Fatalf("err = %v, want NotImplemented", err)
	}
}
