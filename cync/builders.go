package cync

import "encoding/binary"

// builders holds the shared, mutex-free counters used by every packet
// builder method, serializing their on-wire values across all logical
// senders (spec §4.2 — "Both counters are shared across all logical
// senders").
type builders struct {
	outer *outerCounter
	inner *innerCounter
}

func newBuilders() *builders {
	return &builders{
		outer: newOuterCounter(),
		inner: newInnerCounter(),
	}
}

// BuildLogin constructs a login request frame. Args:
//
//   - authorize  the authorize token from UserCredentials
//   - userID     the cloud user id from UserCredentials
func (b *builders) BuildLogin(authorize string, userID uint32) []byte {
	auth := []byte(authorize)

	payload := make([]byte, 0, 1+4+2+len(auth)+3)
	payload = append(payload, protocolVersion)
	payload = binary.BigEndian.AppendUint32(payload, userID)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(auth)))
	payload = append(payload, auth...)
	payload = append(payload, 0x00, 0x00, 0x1E)

	return encodeFrame(MessageTypeLogin, false, payload)
}

// BuildProbe constructs a probe request frame for the given device.
func (b *builders) BuildProbe(deviceID uint32) []byte {
	counter := b.outer.Next()

	payload := make([]byte, 0, 4+2+1+1)
	payload = binary.BigEndian.AppendUint32(payload, deviceID)
	payload = binary.BigEndian.AppendUint16(payload, counter)
	payload = append(payload, 0x00, 0x02)

	return encodeFrame(MessageTypeProbe, false, payload)
}

// BuildHeartbeat returns the literal 5-byte ping frame. It takes no
// arguments and consumes no counter, per spec §4.2.
func BuildHeartbeat() []byte {
	return []byte{0xD3, 0x00, 0x00, 0x00, 0x00}
}

// BuildDisconnect returns the literal 6-byte disconnect frame.
func BuildDisconnect() []byte {
	return []byte{0xE3, 0x00, 0x00, 0x00, 0x01, 0x03}
}

// buildPipeMessage wraps an inner pipe frame in the outer-pipe 7-byte
// prefix ({device_id(be u32), seq(be u16), 0x00}) and an outer Pipe frame
// header, per spec §4.1.
func (b *builders) buildPipeMessage(hubDeviceID uint32, inner []byte) []byte {
	counter := b.outer.Next()

	payload := make([]byte, 0, outerPipePrefixLen+len(inner))
	payload = binary.BigEndian.AppendUint32(payload, hubDeviceID)
	payload = binary.BigEndian.AppendUint16(payload, counter)
	payload = append(payload, 0x00)
	payload = append(payload, inner...)

	return encodeFrame(MessageTypePipe, false, payload)
}

// BuildStateQuery constructs a QUERY_DEVICE_STATUS_PAGES request directed
// at the given hub device, requesting all known devices' current status.
func (b *builders) BuildStateQuery(hubDeviceID uint32) []byte {
	args := []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
	inner := encodePipeFrame(b.inner.Next(), PipeDirectionRequest, PipeCmdQueryDeviceStatusPages, nil, args)
	return b.buildPipeMessage(hubDeviceID, inner)
}

// BuildSetPower constructs a SET_POWER_STATE request targeting meshRefID
// through hubDeviceID.
func (b *builders) BuildSetPower(hubDeviceID uint32, meshRefID uint8, isOn bool) []byte {
	var onByte byte
	if isOn {
		onByte = 1
	}
	args := make([]byte, 0, 8)
	args = append(args, 0x00)
	args = binary.LittleEndian.AppendUint16(args, uint16(meshRefID))
	args = append(args, byte(PipeCmdSetPower), 0x11, 0x02, onByte, 0x00, 0x00)

	seq := b.inner.Next()
	inner := encodePipeFrame(seq, PipeDirectionRequest, PipeCmdSetPower, &seq, args)
	return b.buildPipeMessage(hubDeviceID, inner)
}

// BuildSetBrightness constructs a SET_BRIGHTNESS request. brightness must
// already be clamped to 0..=100 by the caller (spec §4.2).
func (b *builders) BuildSetBrightness(hubDeviceID uint32, meshRefID uint8, brightness uint8) []byte {
	args := make([]byte, 0, 6)
	args = append(args, 0x00)
	args = binary.LittleEndian.AppendUint16(args, uint16(meshRefID))
	args = append(args, byte(PipeCmdSetBrightness), 0x11, 0x02, brightness)

	seq := b.inner.Next()
	inner := encodePipeFrame(seq, PipeDirectionRequest, PipeCmdSetBrightness, &seq, args)
	return b.buildPipeMessage(hubDeviceID, inner)
}

// BuildSetColorTemp constructs a SET_COLOR request in CCT mode. colorTemp
// is 1..=100.
func (b *builders) BuildSetColorTemp(hubDeviceID uint32, meshRefID uint8, colorTemp uint8) []byte {
	args := make([]byte, 0, 7)
	args = append(args, 0x00)
	args = binary.LittleEndian.AppendUint16(args, uint16(meshRefID))
	args = append(args, byte(PipeCmdSetColor), 0x11, 0x02, 0x05, colorTemp)

	seq := b.inner.Next()
	inner := encodePipeFrame(seq, PipeDirectionRequest, PipeCmdSetColor, &seq, args)
	return b.buildPipeMessage(hubDeviceID, inner)
}

// BuildSetRgb constructs a SET_COLOR request in RGB mode.
func (b *builders) BuildSetRgb(hubDeviceID uint32, meshRefID uint8, r, g, bl uint8) []byte {
	args := make([]byte, 0, 9)
	args = append(args, 0x00)
	args = binary.LittleEndian.AppendUint16(args, uint16(meshRefID))
	args = append(args, byte(PipeCmdSetColor), 0x11, 0x02, 0x04, r, g, bl)

	seq := b.inner.Next()
	inner := encodePipeFrame(seq, PipeDirectionRequest, PipeCmdSetColor, &seq, args)
	return b.buildPipeMessage(hubDeviceID, inner)
}
