package cync

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// latencyStats maintains min/mean/max/count for a stream of durations,
// adapted from the teacher's lwl.LatencyStats. Pointer-owned so its mutex is
// never copied when stored in a map.
type latencyStats struct {
	mu    sync.RWMutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func newLatencyStats() *latencyStats {
	return &latencyStats{}
}

func (l *latencyStats) Sample(t time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	l.total += t
	if l.min == 0 || l.min > t {
		l.min = t
	}
	if t > l.max {
		l.max = t
	}
}

func (l *latencyStats) snapshot() (count int64, mean, min, max time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.count > 0 {
		mean = time.Duration(l.total.Nanoseconds() / l.count)
	}
	return l.count, mean, l.min, l.max
}

// Stats aggregates per-message-type send/receive counts and inter-frame
// latency for a single Session, exposed for diagnostics (spec §5).
type Stats struct {
	mu       sync.RWMutex
	sent     map[MessageType]int64
	received map[MessageType]int64
	latency  map[MessageType]*latencyStats

	lastReceived time.Time
}

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return &Stats{
		sent:     make(map[MessageType]int64),
		received: make(map[MessageType]int64),
		latency:  make(map[MessageType]*latencyStats),
	}
}

// RecordSend increments the send counter for msgType.
func (s *Stats) RecordSend(msgType MessageType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[msgType]++
}

// RecordReceive increments the receive counter for msgType and samples the
// time elapsed since the previous received frame of any type, as a coarse
// view of how "chatty" the connection currently is.
func (s *Stats) RecordReceive(msgType MessageType, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received[msgType]++

	ls, ok := s.latency[msgType]
	if !ok {
		ls = newLatencyStats()
		s.latency[msgType] = ls
	}
	if !s.lastReceived.IsZero() {
		ls.Sample(now.Sub(s.lastReceived))
	}
	s.lastReceived = now
}

// Counts returns a snapshot of sent/received counters keyed by message type.
func (s *Stats) Counts() (sent, received map[MessageType]int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sent = make(map[MessageType]int64, len(s.sent))
	for k, v := range s.sent {
		sent[k] = v
	}
	received = make(map[MessageType]int64, len(s.received))
	for k, v := range s.received {
		received[k] = v
	}
	return sent, received
}

func (s *Stats) String() string {
	sent, received := s.Counts()

	var b strings.Builder
	fmt.Fprintln(&b, "session stats:")
	for msgType, count := range sent {
		fmt.Fprintf(&b, "  sent     %-12v %d\n", msgType, count)
	}
	for msgType, count := range received {
		count, mean, min, max := func() (int64, time.Duration, time.Duration, time.Duration) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			ls := s.latency[msgType]
			if ls == nil {
				return count, 0, 0, 0
			}
			c, m, mn, mx := ls.snapshot()
			return c, m, mn, mx
		}()
		fmt.Fprintf(&b, "  received %-12v %d (inter-frame mean=%v min=%v max=%v)\n", msgType, count, mean, min, max)
	}
	return b.String()
}

func (m MessageType) String() string {
	switch m {
	case MessageTypeLogin:
		return "LOGIN"
	case MessageTypeHandshake:
		return "HANDSHAKE"
	case MessageTypeSync:
		return "SYNC"
	case MessageTypePipe:
		return "PIPE"
	case MessageTypePipeSync:
		return "PIPE_SYNC"
	case MessageTypeProbe:
		return "PROBE"
	case MessageTypePing:
		return "PING"
	case MessageTypeDisconnect:
		return "DISCONNECT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(m))
	}
}
