package cync_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cyncgo/cync-go/cync"
)

func TestStats_RecordSend_IncrementsCounts(t *testing.T) {
	s := cync.NewStats()
	s.RecordSend(cync.MessageTypePing)
	s.RecordSend(cync.MessageTypePing)
	s.RecordSend(cync.MessageTypeLogin)

	sent, _ := s.Counts()
	if sent[cync.MessageTypePing] != 2 {
		t.Errorf("sent[Ping] = %d, want 2", sent[cync.MessageTypePing])
	}
	if sent[cync.MessageTypeLogin] != 1 {
		t.Errorf("sent[Login] = %d, want 1", sent[cync.MessageTypeLogin])
	}
}

func TestStats_RecordReceive_IncrementsCounts(t *testing.T) {
	s := cync.NewStats()
	now := time.Unix(1000, 0)
	s.RecordReceive(cync.MessageTypeSync, now)
	s.RecordReceive(cync.MessageTypeSync, now.Add(time.Second))

	_, received := s.Counts()
	if received[cync.MessageTypeSync] != 2 {
		t.Errorf("received[Sync] = %d, want 2", received[cync.MessageTypeSync])
	}
}

func TestStats_String_DoesNotPanicWithNoSamples(t *testing.T) {
	s := cync.NewStats()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("String() panicked: %v", r)
		}
	}()
	_ = s.String()
}

func TestStats_String_ContainsRecordedTypes(t *testing.T) {
	s := cync.NewStats()
	s.RecordSend(cync.MessageTypeProbe)
	out := s.String()
	if !strings.Contains(out, "PROBE") {
		t.Errorf("String() = %q, want it to mention PROBE", out)
	}
}

func TestStats_ConcurrentAccess(t *testing.T) {
	s := cync.NewStats()
	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.RecordSend(cync.MessageTypePing)
			s.RecordReceive(cync.MessageTypePing, time.Now())
		}()
	}
	wg.Wait()

	sent, received := s.Counts()
	if sent[cync.MessageTypePing] != n || received[cync.MessageTypePing] != n {
		t.Errorf("sent=%d received=%d, want both %d", sent[cync.MessageTypePing], received[cync.MessageTypePing], n)
	}
}

func TestMessageType_String_KnownAndUnknown(t *testing.T) {
	if got := cync.MessageTypeLogin.String(); got != "LOGIN" {
		t.Errorf("MessageTypeLogin.String() = %q, want LOGIN", got)
	}
	if got := cync.MessageType(0xFF).String(); !strings.Contains(got, "UNKNOWN") {
		t.Errorf("unknown MessageType.String() = %q, want it to mention UNKNOWN", got)
	}
}
