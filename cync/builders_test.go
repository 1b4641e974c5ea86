package cync

import "testing"

func TestBuildLogin_DecodesAsLoginFrame(t *testing.T) {
	b := newBuilders()
	raw := b.BuildLogin("auth-token", 42)

	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if f.Type != MessageTypeLogin || f.IsResponse {
		t.Errorf("f = %+v, want Type=Login IsResponse=false", f)
	}
}

func TestBuildProbe_DecodesAsProbeFrameWithDeviceID(t *testing.T) {
	b := newBuilders()
	raw := b.BuildProbe(777)

	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if f.Type != MessageTypeProbe {
		t.Fatalf("Type = %v, want Probe", f.Type)
	}
	p := NewParser(func(uint32) meshResolver { return nil }, nil)
	msg, err := p.parseDecodedFrame(f)
	if err != nil {
		t.Fatalf("parseDecodedFrame: %v", err)
	}
	if msg.DeviceID != 777 {
		t.Errorf("DeviceID = %d, want 777", msg.DeviceID)
	}
}

func TestBuildSetPower_RoundTripsThroughPipeDecoder(t *testing.T) {
	b := newBuilders()
	raw := b.BuildSetPower(1, 5, true)

	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if f.Type != MessageTypePipe {
		t.Fatalf("Type = %v, want Pipe", f.Type)
	}
	inner, err := decodePipeFrame(f.Payload[outerPipePrefixLen:])
	if err != nil {
		t.Fatalf("decodePipeFrame: %v", err)
	}
	if inner.CommandCode != PipeCmdSetPower {
		t.Errorf("CommandCode = %v, want PipeCmdSetPower", inner.CommandCode)
	}
	if inner.SeqRepeat == nil {
		t.Fatal("SeqRepeat is nil, want the repeated inner sequence")
	}
	if *inner.SeqRepeat != inner.Seq {
		t.Errorf("SeqRepeat = %d, want it to equal Seq %d", *inner.SeqRepeat, inner.Seq)
	}
}

func TestBuilders_CountersAreSharedAcrossCallers(t *testing.T) {
	b := newBuilders()

	// BuildProbe draws from the same outer counter buildPipeMessage uses;
	// calling both through one *builders must not panic or desync either.
	if _, err := decodeFrame(b.BuildProbe(1)); err != nil {
		t.Fatalf("decodeFrame(BuildProbe): %v", err)
	}
	firstQuery, _ := decodeFrame(b.BuildStateQuery(1))

	// Inner counter: two BuildStateQuery calls must not repeat a sequence
	// number, since both draw from the same *builders instance.
	innerFrame1, err := decodePipeFrame(firstQuery.Payload[outerPipePrefixLen:])
	if err != nil {
		t.Fatalf("decodePipeFrame: %v", err)
	}
	secondQueryRaw := b.BuildStateQuery(1)
	secondQuery, _ := decodeFrame(secondQueryRaw)
	innerFrame2, err := decodePipeFrame(secondQuery.Payload[outerPipePrefixLen:])
	if err != nil {
		t.Fatalf("decodePipeFrame: %v", err)
	}
	if innerFrame1.Seq == innerFrame2.Seq {
		t.Errorf("two BuildStateQuery calls reused inner sequence %d", innerFrame1.Seq)
	}
}

func TestBuildHeartbeat_DisconnectAreLiterals(t *testing.T) {
	hb := BuildHeartbeat()
	if len(hb) != 5 {
		t.Errorf("BuildHeartbeat() len = %d, want 5", len(hb))
	}
	dc := BuildDisconnect()
	f, err := decodeFrame(dc)
	if err != nil {
		t.Fatalf("decodeFrame(BuildDisconnect()): %v", err)
	}
	if f.Type != MessageTypeDisconnect {
		t.Errorf("Type = %v, want Disconnect", f.Type)
	}
}
