package pipeline

import (
	"sync/atomic"

	"github.com/banshee-data/ars430.report/internal/monitoring"
)

// Stats tracks pipeline counters for the periodic log line and the API.
// Prometheus carries the long-term series; these are the cheap in-process
// numbers.
type Stats struct {
	packets      atomic.Int64
	bytes        atomic.Int64
	decodeErrors atomic.Int64
	statuses     atomic.Int64
	events       atomic.Int64
	detections   atomic.Int64
	flushes      atomic.Int64
	suppressed   atomic.Int64

	// window markers for rate reporting in LogStats
	lastPackets atomic.Int64
	lastBytes   atomic.Int64
}

func (s *Stats) addPacket(n int) {
	s.packets.Add(1)
	s.bytes.Add(int64(n))
}

func (s *Stats) addDecodeError() { s.decodeErrors.Add(1) }
func (s *Stats) addStatus()      { s.statuses.Add(1) }
func (s *Stats) addFlush()       { s.flushes.Add(1) }
func (s *Stats) addSuppressed()  { s.suppressed.Add(1) }

func (s *Stats) addEvent(detections int) {
	s.events.Add(1)
	s.detections.Add(int64(detections))
}

// Snapshot is a point-in-time copy of the counters, JSON-shaped for the API.
type Snapshot struct {
	Packets      int64 `json:"packets"`
	Bytes        int64 `json:"bytes"`
	DecodeErrors int64 `json:"decode_errors"`
	Statuses     int64 `json:"statuses"`
	Events       int64 `json:"events"`
	Detections   int64 `json:"detections"`
	Flushes      int64 `json:"flushes"`
	Suppressed   int64 `json:"suppressed"`
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Packets:      s.packets.Load(),
		Bytes:        s.bytes.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		Statuses:     s.statuses.Load(),
		Events:       s.events.Load(),
		Detections:   s.detections.Load(),
		Flushes:      s.flushes.Load(),
		Suppressed:   s.suppressed.Load(),
	}
}

// LogStats writes one summary line through the monitoring logger, reporting
// totals plus the delta since the previous call.
func (s *Stats) LogStats() {
	snap := s.Snapshot()
	deltaPackets := snap.Packets - s.lastPackets.Swap(snap.Packets)
	deltaBytes := snap.Bytes - s.lastBytes.Swap(snap.Bytes)

	monitoring.Logf("ars430 stats: packets=%d (+%d) bytes=%d (+%d) statuses=%d events=%d detections=%d flushes=%d errors=%d suppressed=%d",
		snap.Packets, deltaPackets, snap.Bytes, deltaBytes,
		snap.Statuses, snap.Events, snap.Detections, snap.Flushes,
		snap.DecodeErrors, snap.Suppressed)
}
