package cync

import "encoding/binary"

// MessageType identifies the outer frame's purpose. Values match the
// on-wire nibble stored in the high half of the info byte.
type MessageType uint8

const (
	MessageTypeLogin      MessageType = 1
	MessageTypeHandshake  MessageType = 2
	MessageTypeSync       MessageType = 4
	MessageTypePipe       MessageType = 7
	MessageTypePipeSync   MessageType = 8
	MessageTypeProbe      MessageType = 10
	MessageTypePing       MessageType = 13
	MessageTypeDisconnect MessageType = 14
)

// protocolVersion is the version value this client stamps on every frame
// it emits. Inbound frames may carry other values (e.g. the login ack
// scenario in spec §8 carries version=0); the codec never rejects based on
// version, it only decodes it.
const protocolVersion = 3

// outerHeaderLen is the fixed size of the outer frame header: one info
// byte followed by a big-endian u32 payload length.
const outerHeaderLen = 5

// frame is a fully decoded outer frame: header fields plus the raw payload
// bytes (header stripped).
type frame struct {
	Type       MessageType
	IsResponse bool
	Version    uint8
	Payload    []byte
}

// encodeFrame builds a complete outer frame (header + payload) for
// transmission. Outer frames use big-endian integers throughout.
func encodeFrame(msgType MessageType, isResponse bool, payload []byte) []byte {
	info := byte(msgType)<<4 | (protocolVersion & 0x07)
	if isResponse {
		info |= 0x08
	}

	out := make([]byte, outerHeaderLen+len(payload))
	out[0] = info
	binary.BigEndian.PutUint32(out[1:5], uint32(len(payload)))
	copy(out[5:], payload)
	return out
}

// decodeFrame parses a single complete outer frame (exactly
// outerHeaderLen+payloadLength bytes, no more, no less). Use
// splitFrame to carve such a slice out of an arbitrary byte stream first.
func decodeFrame(b []byte) (frame, error) {
	if len(b) < outerHeaderLen {
		return frame{}, errLengthMismatch(outerHeaderLen, len(b))
	}

	info := b[0]
	msgType := MessageType((info & 0xF0) >> 4)
	isResponse := info&0x08 != 0
	version := info & 0x07

	payloadLen := int(binary.BigEndian.Uint32(b[1:5]))
	body := b[outerHeaderLen:]
	if len(body) != payloadLen {
		return frame{}, errLengthMismatch(payloadLen, len(body))
	}

	return frame{
		Type:       msgType,
		IsResponse: isResponse,
		Version:    version,
		Payload:    body,
	}, nil
}

// splitFrame inspects the head of a byte stream buffer and, if a complete
// outer frame is present, returns it along with the number of bytes
// consumed. ok is false if buf does not yet contain a full frame (the
// caller should read more from the socket and retry); this lets the reader
// loop accumulate across arbitrarily many short socket reads, per spec §4.1.
func splitFrame(buf []byte) (f frame, consumed int, ok bool, err error) {
	if len(buf) < outerHeaderLen {
		return frame{}, 0, false, nil
	}

	payloadLen := int(binary.BigEndian.Uint32(buf[1:5]))
	total := outerHeaderLen + payloadLen
	if len(buf) < total {
		return frame{}, 0, false, nil
	}

	f, err = decodeFrame(buf[:total])
	if err != nil {
		return frame{}, 0, false, err
	}
	return f, total, true, nil
}
