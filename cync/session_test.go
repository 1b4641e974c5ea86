package cync

import (
	"testing"

	"github.com/cyncgo/cync-go/rest"
)

func TestSessionState_String(t *testing.T) {
	cases := map[sessionState]string{
		stateDisconnected: "Disconnected",
		stateConnecting:   "Connecting",
		stateLoggingIn:    "LoggingIn",
		stateReady:        "Ready",
		stateClosing:      "Closing",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("sessionState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestSession_InitialState(t *testing.T) {
	b := newBuilders()
	parser := NewParser(func(uint32) meshResolver { return nil }, nil)
	s := NewSession("example.invalid:1", rest.Static{}, b, parser, nil, nil, nil)

	if s.State() != stateDisconnected {
		t.Errorf("State() = %v, want Disconnected", s.State())
	}
	if s.DeviceStatusesUpdated() {
		t.Error("DeviceStatusesUpdated() = true before any connection")
	}
}

func TestSession_String_DoesNotPanic(t *testing.T) {
	b := newBuilders()
	parser := NewParser(func(uint32) meshResolver { return nil }, nil)
	s := NewSession("example.invalid:1", rest.Static{}, b, parser, nil, nil, nil)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("String() panicked: %v", r)
		}
	}()
	_ = s.String()
}

func TestSession_SharesBuildersWithOwningClient(t *testing.T) {
	// Mirrors how Client wires one *builders into both its command methods
	// and the Session, so outer/inner counters stay monotonic across every
	// logical sender (spec: counters shared across senders).
	b := newBuilders()
	parser := NewParser(func(uint32) meshResolver { return nil }, nil)
	s := NewSession("example.invalid:1", rest.Static{}, b, parser, nil, nil, nil)
	if s.builders != b {
		t.Fatal("Session does not hold the *builders it was constructed with")
	}

	firstViaBuilders, _ := decodeFrame(b.BuildProbe(1))
	s.probeAll() // no-op: knownDeviceIDs is nil
	secondViaBuilders, _ := decodeFrame(b.BuildProbe(1))

	p1, _ := parser.parseDecodedFrame(firstViaBuilders)
	p2, _ := parser.parseDecodedFrame(secondViaBuilders)
	if p1.DeviceID != p2.DeviceID {
		t.Fatalf("device ids diverged: %d vs %d", p1.DeviceID, p2.DeviceID)
	}
}
