package pipeline

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// capturePublisher records everything published to it.
type capturePublisher struct {
	mu       sync.Mutex
	statuses []*ars430.Status
	batches  []*batch.Batch
	fail     error
}

func (c *capturePublisher) PublishStatus(s *ars430.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.statuses = append(c.statuses, s)
	return nil
}

func (c *capturePublisher) PublishBatch(b *batch.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.batches = append(c.batches, b)
	return nil
}

// rawEventPacket builds a full wire packet (header + event payload) with the
// given detection records of all-zero bytes plus a nonzero range so the
// detection count is visible downstream.
func rawEventPacket(magic uint32, timestamp uint32, detections int) []byte {
	buf := make([]byte, ars430.HEADER_LEN)
	binary.BigEndian.PutUint32(buf[0:4], magic)

	payload := make([]byte, ars430.EVENT_HEADER_LEN+detections*ars430.DETECTION_RECORD_LEN)
	binary.BigEndian.PutUint32(payload[14:18], timestamp)
	binary.BigEndian.PutUint16(payload[26:28], uint16(detections))
	payload[31] = uint8(detections)
	for i := 0; i < detections; i++ {
		rec := payload[ars430.EVENT_HEADER_LEN+i*ars430.DETECTION_RECORD_LEN:]
		binary.BigEndian.PutUint16(rec[0:2], 1000) // nonzero range
	}
	return append(buf, payload...)
}

// rawStatusPacket builds a minimal valid STATUS wire packet.
func rawStatusPacket() []byte {
	buf := make([]byte, ars430.HEADER_LEN+ars430.STATUS_FRAME_LEN)
	binary.BigEndian.PutUint32(buf[0:4], ars430.MAGIC_STATUS)
	return buf
}

func TestPipelineStatusBypassesAggregator(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub})

	if err := p.HandlePacket(rawStatusPacket()); err != nil {
		t.Fatalf("HandlePacket failed: %v", err)
	}
	if len(pub.statuses) != 1 {
		t.Fatalf("expected immediate status publication, got %d", len(pub.statuses))
	}
	if p.Aggregator().Pending(batch.CategoryNear) != 0 || p.Aggregator().Pending(batch.CategoryFar) != 0 {
		t.Error("status packet touched the aggregator buffers")
	}
}

func TestPipelineBatchingAcrossTimestampBoundary(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub})

	for i := 0; i < 3; i++ {
		if err := p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR0, 5, 2)); err != nil {
			t.Fatalf("HandlePacket failed: %v", err)
		}
	}
	if len(pub.batches) != 0 {
		t.Fatal("flush before timestamp boundary")
	}

	if err := p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR1, 7, 1)); err != nil {
		t.Fatalf("HandlePacket failed: %v", err)
	}
	if len(pub.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(pub.batches))
	}
	b := pub.batches[0]
	if b.Timestamp != 5 || len(b.Events) != 3 || b.Detections() != 6 {
		t.Errorf("batch wrong: ts=%d events=%d detections=%d", b.Timestamp, len(b.Events), b.Detections())
	}
	if b.Category != batch.CategoryNear {
		t.Errorf("category = %v, want NEAR", b.Category)
	}
}

func TestPipelineDecodeFailureLeavesAggregatorUntouched(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub})

	p.HandlePacket(rawEventPacket(ars430.MAGIC_FAR0, 9, 1))

	// Truncated event payload: header classifies, decode fails.
	bad := rawEventPacket(ars430.MAGIC_FAR1, 10, 0)[:ars430.HEADER_LEN+10]
	if err := p.HandlePacket(bad); !errors.Is(err, ars430.ErrTruncatedPacket) {
		t.Fatalf("expected ErrTruncatedPacket, got %v", err)
	}

	// The failed packet must not have flushed or appended.
	if len(pub.batches) != 0 {
		t.Error("failed packet caused a flush")
	}
	if n := p.Aggregator().Pending(batch.CategoryFar); n != 1 {
		t.Errorf("FAR pending = %d, want 1", n)
	}

	// Unknown magic and short header are also per-packet errors.
	if err := p.HandlePacket([]byte{1, 2, 3}); !errors.Is(err, ars430.ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}
	unknown := rawEventPacket(0x11223344, 1, 0)
	if err := p.HandlePacket(unknown); !errors.Is(err, ars430.ErrUnknownHeader) {
		t.Errorf("expected ErrUnknownHeader, got %v", err)
	}
}

func TestPipelineImmediateMode(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub, Immediate: true})

	if err := p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR2, 42, 2)); err != nil {
		t.Fatalf("HandlePacket failed: %v", err)
	}
	if len(pub.batches) != 1 {
		t.Fatalf("expected immediate publication, got %d batches", len(pub.batches))
	}
	if pub.batches[0].ID == "" {
		t.Error("immediate batch missing ID")
	}

	// Zero-detection packets decode but are suppressed from publication.
	if err := p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR2, 43, 0)); err != nil {
		t.Fatalf("HandlePacket failed: %v", err)
	}
	if len(pub.batches) != 1 {
		t.Error("zero-detection event was published in immediate mode")
	}

	snap := p.Stats().Snapshot()
	if snap.Events != 2 || snap.Suppressed != 1 {
		t.Errorf("stats wrong: %+v", snap)
	}
}

func TestPipelineFlushDrainsTail(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub})

	p.HandlePacket(rawEventPacket(ars430.MAGIC_FAR0, 100, 1))
	p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR0, 200, 1))
	p.Flush()

	if len(pub.batches) != 2 {
		t.Fatalf("expected 2 batches after Flush, got %d", len(pub.batches))
	}
}

func TestPipelineEmptyBatchSuppressed(t *testing.T) {
	pub := &capturePublisher{}
	p := New(Config{Publisher: pub})

	// A whole cycle of zero-detection packets flushes but is not published.
	p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR0, 1, 0))
	p.HandlePacket(rawEventPacket(ars430.MAGIC_NEAR0, 2, 1))
	if len(pub.batches) != 0 {
		t.Error("empty cycle was published")
	}

	snap := p.Stats().Snapshot()
	if snap.Flushes != 1 || snap.Suppressed != 1 {
		t.Errorf("stats wrong: %+v", snap)
	}
}
