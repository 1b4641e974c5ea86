package cync

import "encoding/binary"

// ParsedMessageType tags the kind of message a decoded frame resolved to.
type ParsedMessageType int

const (
	ParsedLoginAck ParsedMessageType = iota
	ParsedProbeAck
	ParsedSync
	ParsedPipe
	ParsedDisconnect
)

// ParsedMessage is the typed result of decoding one outer frame.
type ParsedMessage struct {
	Type       ParsedMessageType
	IsResponse bool
	Version    uint8
	DeviceID   uint32 // 0 if not applicable (e.g. Disconnect)

	// ProbeData carries the opaque probe payload for ParsedProbeAck.
	ProbeData []byte

	// SyncUpdates / PipeUpdates map a resolved cloud device_id to its
	// decoded light-state update, for ParsedSync / ParsedPipe
	// (QUERY_DEVICE_STATUS_PAGES) respectively.
	SyncUpdates map[uint32]lightStateUpdate
	PipeUpdates map[uint32]lightStateUpdate

	// PipeCommandCode is set for ParsedPipe.
	PipeCommandCode PipeCommandCode
}

// meshResolver resolves a mesh_reference_id to a Device within a single
// home — the minimal view of the topology the parser needs. *Home already
// satisfies this.
type meshResolver interface {
	FindDeviceByMeshRef(meshRef uint8) *Device
	FindDeviceByID(deviceID uint32) *Device
}

// deviceTypeLookup resolves a cloud device_id's device_type, needed to
// decide whether a Sync frame's originating device is mesh-capable.
type deviceTypeLookup interface {
	DeviceType(deviceID uint32) (uint16, bool)
}

// Parser decodes outer frames into ParsedMessage values. It needs a way to
// resolve mesh reference ids back to cloud device ids, which is home
// (and hence topology-store) scoped, per spec §4.3.
type Parser struct {
	resolve func(deviceID uint32) meshResolver
	lookup  deviceTypeLookup
}

// NewParser constructs a Parser. resolveHome, given the device_id the
// frame is addressed to/from, returns the Home whose mesh the frame
// belongs to (so mesh_reference_id lookups are scoped correctly); lookup
// resolves device types for the Sync mesh-capability gate.
func NewParser(resolveHome func(deviceID uint32) meshResolver, lookup deviceTypeLookup) *Parser {
	return &Parser{resolve: resolveHome, lookup: lookup}
}

// ParseFrame decodes a single complete outer frame.
func (p *Parser) ParseFrame(raw []byte) (ParsedMessage, error) {
	f, err := decodeFrame(raw)
	if err != nil {
		return ParsedMessage{}, err
	}
	return p.parseDecodedFrame(f)
}

// parseDecodedFrame dispatches an already-decoded outer frame, letting
// callers that decoded a frame themselves (e.g. a streaming reader) skip
// re-encoding it just to parse it again.
func (p *Parser) parseDecodedFrame(f frame) (ParsedMessage, error) {
	switch f.Type {
	case MessageTypeLogin:
		return ParsedMessage{Type: ParsedLoginAck, IsResponse: f.IsResponse, Version: f.Version}, nil
	case MessageTypeProbe:
		return p.parseProbe(f)
	case MessageTypeSync:
		return p.parseSync(f)
	case MessageTypePipe:
		return p.parsePipe(f)
	case MessageTypeDisconnect:
		return ParsedMessage{Type: ParsedDisconnect, IsResponse: f.IsResponse, Version: f.Version}, nil
	default:
		return ParsedMessage{}, newErr(KindNotImplemented, "unsupported outer message type")
	}
}

func (p *Parser) parseProbe(f frame) (ParsedMessage, error) {
	if len(f.Payload) < 4 {
		return ParsedMessage{}, errLengthMismatch(4, len(f.Payload))
	}
	deviceID := binary.BigEndian.Uint32(f.Payload[0:4])
	data := f.Payload[4:]

	return ParsedMessage{
		Type:       ParsedProbeAck,
		IsResponse: f.IsResponse,
		Version:    f.Version,
		DeviceID:   deviceID,
		ProbeData:  data,
	}, nil
}

// parseSync decodes a Sync frame per spec §4.3: only decoded for
// mesh-capable originating devices, and only when the payload carries the
// 01 01 06 prefix at bytes 4..7; anything else is NotImplemented.
func (p *Parser) parseSync(f frame) (ParsedMessage, error) {
	if len(f.Payload) < 4 {
		return ParsedMessage{}, errLengthMismatch(4, len(f.Payload))
	}
	deviceID := binary.BigEndian.Uint32(f.Payload[0:4])

	deviceType, ok := p.lookup.DeviceType(deviceID)
	if !ok {
		return ParsedMessage{}, newErr(KindNotImplemented, "unknown originating device for sync frame")
	}
	isMesh := capabilitiesForDeviceType(deviceType).Has(CapSigMesh)

	if len(f.Payload) < 7 || f.Payload[4] != 0x01 || f.Payload[5] != 0x01 || f.Payload[6] != 0x06 || !isMesh {
		return ParsedMessage{}, newErr(KindNotImplemented, "unsupported sync payload prefix or non-mesh device")
	}

	resolver := p.resolve(deviceID)
	if resolver == nil {
		return ParsedMessage{}, newErr(KindDeviceNotFound, "no home resolver for sync device")
	}

	body := f.Payload[7:]
	updates := make(map[uint32]lightStateUpdate)
	for len(body) > 3 {
		infoLength := int(binary.BigEndian.Uint16(body[1:3]))
		entry := body[3 : 3+infoLength]

		if len(entry) < 7 {
			break
		}
		meshRef := entry[0]
		target := resolver.FindDeviceByMeshRef(meshRef)
		if target == nil {
			body = body[3+infoLength:]
			continue
		}

		updates[target.DeviceID] = lightStateUpdate{
			hasOn:         true,
			isOn:          entry[1] != 0,
			hasBrightness: true,
			brightness:    entry[2],
			hasColorMode:  true,
			colorMode:     entry[3],
			hasRGB:        true,
			rgb:           [3]uint8{entry[4], entry[5], entry[6]},
		}

		body = body[3+infoLength:]
	}

	return ParsedMessage{
		Type:        ParsedSync,
		IsResponse:  f.IsResponse,
		Version:     f.Version,
		DeviceID:    deviceID,
		SyncUpdates: updates,
	}, nil
}

// parsePipe decodes a Pipe frame: the outer-pipe prefix, then the
// delimited inner frame per §4.1, dispatching on command_code.
func (p *Parser) parsePipe(f frame) (ParsedMessage, error) {
	if len(f.Payload) < 4 {
		return ParsedMessage{}, errLengthMismatch(4, len(f.Payload))
	}
	deviceID := binary.BigEndian.Uint32(f.Payload[0:4])

	if len(f.Payload) <= outerPipePrefixLen || f.Payload[outerPipePrefixLen] != pipeDelimiter {
		return ParsedMessage{}, newErr(KindNotImplemented, "pipe payload missing inner frame delimiter")
	}

	inner, err := decodePipeFrame(f.Payload[outerPipePrefixLen:])
	if err != nil {
		return ParsedMessage{}, err
	}

	msg := ParsedMessage{
		Type:            ParsedPipe,
		IsResponse:      f.IsResponse,
		Version:         f.Version,
		DeviceID:        deviceID,
		PipeCommandCode: inner.CommandCode,
	}

	switch inner.CommandCode {
	case PipeCmdQueryDeviceStatusPages:
		resolver := p.resolve(deviceID)
		if resolver == nil {
			return ParsedMessage{}, newErr(KindDeviceNotFound, "no home resolver for pipe device")
		}
		updates, err := parseDeviceStatusPages(inner.Args, resolver)
		if err != nil {
			return ParsedMessage{}, err
		}
		msg.PipeUpdates = updates
		return msg, nil
	default:
		return ParsedMessage{}, newErr(KindNotImplemented, "unsupported pipe command code")
	}
}

// statusRecordLen is the fixed size of one device entry in a
// QUERY_DEVICE_STATUS_PAGES response, per spec §4.3.
const statusRecordLen = 24

func parseDeviceStatusPages(data []byte, resolver meshResolver) (map[uint32]lightStateUpdate, error) {
	updates := make(map[uint32]lightStateUpdate)
	if len(data) < 6 {
		return updates, nil
	}

	deviceCount := int(binary.LittleEndian.Uint16(data[4:6]))
	rest := data[6:]

	for i := 0; i < deviceCount; i++ {
		if len(rest) < statusRecordLen {
			return nil, errLengthMismatch((i+1)*statusRecordLen, len(rest)+i*statusRecordLen)
		}
		record := rest[:statusRecordLen]

		meshRef := binary.LittleEndian.Uint16(record[0:2])
		isOnline := record[3]
		isOn := record[8]
		brightness := record[12]
		colorMode := record[16]
		r, g, b := record[20], record[21], record[22]

		target := resolver.FindDeviceByMeshRef(uint8(meshRef))
		if target != nil {
			updates[target.DeviceID] = lightStateUpdate{
				hasOnline:     true,
				isOnline:      isOnline != 0,
				hasOn:         true,
				isOn:          isOn != 0,
				hasBrightness: true,
				brightness:    brightness,
				hasColorMode:  true,
				colorMode:     colorMode,
				hasRGB:        true,
				rgb:           [3]uint8{r, g, b},
			}
		}

		rest = rest[statusRecordLen:]
	}

	return updates, nil
}
