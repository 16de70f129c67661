package batch

import (
	"testing"

	"github.com/banshee-data/ars430.report/internal/ars430"
)

func nearEvent(ts uint32) *ars430.Event {
	return &ars430.Event{Timestamp: ts, EventType: ars430.HeaderNear0, DetectionsInPacket: 1}
}

func farEvent(ts uint32) *ars430.Event {
	return &ars430.Event{Timestamp: ts, EventType: ars430.HeaderFar0, DetectionsInPacket: 1}
}

func TestAggregatorFlushOnTimestampBoundary(t *testing.T) {
	var flushed []*Batch
	agg := NewAggregator(func(b *Batch) { flushed = append(flushed, b) })

	// Three packets of cycle 5: buffered, nothing emitted.
	for i := 0; i < 3; i++ {
		if err := agg.Add(nearEvent(5)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if len(flushed) != 0 {
			t.Fatalf("unexpected flush after packet %d", i+1)
		}
	}

	// Cycle 7 arrives: exactly one flush of the three cycle-5 packets.
	if err := agg.Add(nearEvent(7)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected 1 flush, got %d", len(flushed))
	}

	b := flushed[0]
	if b.Timestamp != 5 {
		t.Errorf("batch timestamp = %d, want 5", b.Timestamp)
	}
	if len(b.Events) != 3 {
		t.Errorf("batch size = %d, want 3", len(b.Events))
	}
	for i, e := range b.Events {
		if e.Timestamp != 5 {
			t.Errorf("event %d timestamp = %d, want 5", i, e.Timestamp)
		}
	}
	if b.ID == "" {
		t.Error("batch ID not assigned")
	}
	if b.Category != CategoryNear {
		t.Errorf("batch category = %v, want NEAR", b.Category)
	}

	// Buffer now holds only the cycle-7 packet.
	if n := agg.Pending(CategoryNear); n != 1 {
		t.Errorf("pending after flush = %d, want 1", n)
	}
}

func TestAggregatorBuffersAreIndependent(t *testing.T) {
	var flushed []*Batch
	agg := NewAggregator(func(b *Batch) { flushed = append(flushed, b) })

	// Interleave: a FAR arrival with a new timestamp must not flush the
	// NEAR buffer, and vice versa.
	agg.Add(nearEvent(10))
	agg.Add(farEvent(20))
	agg.Add(farEvent(21)) // flushes FAR cycle 20 only
	if len(flushed) != 1 || flushed[0].Category != CategoryFar {
		t.Fatalf("expected exactly one FAR flush, got %+v", flushed)
	}
	if n := agg.Pending(CategoryNear); n != 1 {
		t.Errorf("NEAR buffer disturbed by FAR flush: pending=%d", n)
	}

	agg.Add(nearEvent(11)) // flushes NEAR cycle 10 only
	if len(flushed) != 2 || flushed[1].Category != CategoryNear {
		t.Fatalf("expected a NEAR flush, got %+v", flushed)
	}
	if n := agg.Pending(CategoryFar); n != 1 {
		t.Errorf("FAR buffer disturbed by NEAR flush: pending=%d", n)
	}
}

func TestAggregatorRejectsStatusType(t *testing.T) {
	agg := NewAggregator(nil)
	err := agg.Add(&ars430.Event{EventType: ars430.HeaderStatus})
	if err == nil {
		t.Fatal("expected error for status-typed event")
	}
}

func TestAggregatorFlushDrainsBoth(t *testing.T) {
	var flushed []*Batch
	agg := NewAggregator(func(b *Batch) { flushed = append(flushed, b) })

	agg.Add(nearEvent(1))
	agg.Add(nearEvent(1))
	agg.Add(farEvent(2))
	agg.Flush()

	if len(flushed) != 2 {
		t.Fatalf("expected 2 batches from drain, got %d", len(flushed))
	}
	if agg.Pending(CategoryNear) != 0 || agg.Pending(CategoryFar) != 0 {
		t.Error("buffers not empty after Flush")
	}

	// Flushing empty buffers emits nothing.
	agg.Flush()
	if len(flushed) != 2 {
		t.Errorf("empty Flush emitted %d extra batches", len(flushed)-2)
	}
}

func TestBatchDetections(t *testing.T) {
	b := &Batch{Events: []*ars430.Event{
		{Detections: make([]ars430.Detection, 3)},
		{Detections: make([]ars430.Detection, 2)},
		{},
	}}
	if n := b.Detections(); n != 5 {
		t.Errorf("Detections() = %d, want 5", n)
	}
}

func TestCategoryOf(t *testing.T) {
	for _, tc := range []struct {
		t    ars430.HeaderType
		want Category
		ok   bool
	}{
		{ars430.HeaderNear0, CategoryNear, true},
		{ars430.HeaderNear1, CategoryNear, true},
		{ars430.HeaderNear2, CategoryNear, true},
		{ars430.HeaderFar0, CategoryFar, true},
		{ars430.HeaderFar1, CategoryFar, true},
		{ars430.HeaderStatus, 0, false},
	} {
		got, ok := CategoryOf(tc.t)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("CategoryOf(%v) = %v,%v; want %v,%v", tc.t, got, ok, tc.want, tc.ok)
		}
	}
}
