package reach

import (
	"encoding/binary"

	"github.com/reach-iot/reach-go/reach/wire"
)

// FramingKind distinguishes the two envelope encodings a prompt may use
// (spec §4.1). The engine always answers in the same kind the client
// used for the most recent prompt; async notifications (no prompt) use
// that same most-recent-prompt kind.
type FramingKind int

const (
	FramingClassic FramingKind = iota
	FramingAhsoka
)

// detectFraming implements the heuristic discriminator from spec §3: the
// classic envelope starts with a field-1 LEN tag (0x0A) and a non-zero
// length byte. This is explicitly called out in spec §9 as a heuristic
// that assumes field 1 (Header) is always present; malformed first bytes
// are Ahsoka by default, same as the reference implementation.
func detectFraming(frame []byte) FramingKind {
	if len(frame) >= 2 && frame[0] == 0x0A && frame[1] != 0x00 {
		return FramingClassic
	}
	return FramingAhsoka
}

// decodeEnvelope splits a raw transport frame into the uniform Header and
// the still-encoded payload bytes (C1 decode_envelope).
func decodeEnvelope(frame []byte) (wire.Header, []byte, FramingKind, error) {
	kind := detectFraming(frame)
	switch kind {
	case FramingClassic:
		var env wire.ClassicEnvelope
		if err := wire.Unmarshal(frame, &env); err != nil {
			return wire.Header{}, nil, kind, NewError(DecodingFailed, "classic envelope: %v", err)
		}
		return env.Header, env.Payload, kind, nil
	default:
		if len(frame) < 2 {
			return wire.Header{}, nil, kind, NewError(DecodingFailed, "ahsoka envelope: frame too short")
		}
		hlen := int(binary.LittleEndian.Uint16(frame[:2]))
		if len(frame) < 2+hlen {
			return wire.Header{}, nil, kind, NewError(DecodingFailed, "ahsoka envelope: header length %d exceeds frame", hlen)
		}
		var h wire.Header
		if err := wire.Unmarshal(frame[2:2+hlen], &h); err != nil {
			return wire.Header{}, nil, kind, NewError(DecodingFailed, "ahsoka header: %v", err)
		}
		payload := frame[2+hlen:]
		return h, payload, kind, nil
	}
}

// encodeEnvelope wraps an encoded payload with the header in the
// requested framing (C1 encode_envelope), writing into buf[:0].
func encodeEnvelope(buf []byte, h wire.Header, payload []byte, kind FramingKind) ([]byte, error) {
	buf = buf[:0]
	switch kind {
	case FramingClassic:
		env := wire.ClassicEnvelope{Header: h, Payload: payload}
		out, err := wire.Marshal(buf, &env)
		if err != nil {
			return nil, NewError(EncodingFailed, "classic envelope: %v", err)
		}
		if len(out) > CodedBufferSize {
			return nil, NewError(EncodingFailed, "classic envelope: %d exceeds buffer", len(out))
		}
		return out, nil
	default:
		hdrBuf, err := wire.Marshal(nil, &h)
		if err != nil {
			return nil, NewError(EncodingFailed, "ahsoka header: %v", err)
		}
		if len(hdrBuf) > 0xFFFF {
			return nil, NewError(EncodingFailed, "ahsoka header too large")
		}
		out := buf
		var lenPrefix [2]byte
		binary.LittleEndian.PutUint16(lenPrefix[:], uint16(len(hdrBuf)))
		out = append(out, lenPrefix[:]...)
		out = append(out, hdrBuf...)
		out = append(out, payload...)
		if len(out) > CodedBufferSize {
			return nil, NewError(EncodingFailed, "ahsoka envelope: %d exceeds buffer", len(out))
		}
		return out, nil
	}
}

// decodePayload applies the schema for message_type to raw payload bytes
// (C1 decode_payload). The returned value is always a pointer to one of
// the wire.*Request/wire.* structs.
func decodePayload(mt wire.MessageType, data []byte) (any, error) {
	v := newPayload(mt)
	if v == nil {
		return nil, NewError(NotImplemented, "no schema for message type %s", mt)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := wire.Unmarshal(data, v); err != nil {
		return nil, NewError(DecodingFailed, "payload for %s: %v", mt, err)
	}
	return v, nil
}

// encodePayload serializes v, the uncoded response struct a handler
// filled in, into buf[:0] (C1 encode_payload).
func encodePayload(buf []byte, v any) ([]byte, error) {
	out, err := wire.Marshal(buf[:0], v)
	if err != nil {
		return nil, NewError(EncodingFailed, "%v", err)
	}
	return out, nil
}

func newPayload(mt wire.MessageType) any {
	switch mt {
	case wire.MsgPing:
		return &wire.PingRequest{}
	case wire.MsgGetDeviceInfo:
		return &wire.DeviceInfoRequest{}
	case wire.MsgDiscoverParameters, wire.MsgDiscoverParamEx:
		return &wire.ParameterInfoRequest{}
	case wire.MsgReadParameters:
		return &wire.ParameterRead{}
	case wire.MsgWriteParameters:
		return &wire.ParameterWrite{}
	case wire.MsgDiscoverNotifications:
		return &wire.ParameterInfoRequest{}
	case wire.MsgParamEnableNotify, wire.MsgParamDisableNotify:
		return &wire.ParameterNotifyConfig{}
	case wire.MsgDiscoverFiles:
		return &wire.DiscoverFiles{}
	case wire.MsgTransferInit:
		return &wire.FileTransferInit{}
	case wire.MsgTransferData:
		return &wire.FileTransferData{}
	case wire.MsgTransferDataNotification:
		return &wire.FileTransferDataNotification{}
	case wire.MsgEraseFile:
		return &wire.FileEraseRequest{}
	case wire.MsgDiscoverCommands:
		return &wire.DiscoverCommands{}
	case wire.MsgSendCommand:
		return &wire.SendCommand{}
	case wire.MsgCLINotification:
		return &wire.CLIData{}
	case wire.MsgGetTime:
		return &wire.TimeGetRequest{}
	case wire.MsgSetTime:
		return &wire.TimeSetRequest{}
	case wire.MsgDiscoverWifi:
		return &wire.DiscoverWiFiRequest{}
	case wire.MsgWifiConnect:
		return &wire.WiFiConnectionRequest{}
	case wire.MsgDiscoverStreams:
		return &wire.DiscoverStreams{}
	case wire.MsgStreamOpen:
		return &wire.StreamOpen{}
	case wire.MsgStreamClose:
		return &wire.StreamClose{}
	default:
		return nil
	}
}
