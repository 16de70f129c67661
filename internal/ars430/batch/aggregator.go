// Package batch groups decoded ARS430 event packets into per-cycle batches.
//
// The sensor splits one measurement cycle across several UDP packets that
// share a Timestamp. NEAR and FAR cycles run on independent cadences, so the
// aggregator keeps one pending buffer per category and flushes a buffer the
// moment a packet with a different timestamp arrives for that category.
package batch

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/ars430.report/internal/ars430"
)

// Category selects one of the two independent pending buffers.
type Category int

const (
	CategoryNear Category = iota
	CategoryFar
)

func (c Category) String() string {
	if c == CategoryNear {
		return "NEAR"
	}
	return "FAR"
}

// CategoryOf maps an event packet class to its buffer. Status packets have
// no category and must never reach the aggregator.
func CategoryOf(t ars430.HeaderType) (Category, bool) {
	switch {
	case t.IsNear():
		return CategoryNear, true
	case t.IsFar():
		return CategoryFar, true
	}
	return 0, false
}

// Batch is one flushed group of event packets sharing a sensor timestamp.
// The packets are kept whole and in arrival order; no merged union record is
// fabricated (the merge shape is an open integration question upstream).
type Batch struct {
	ID        string // assigned at flush time
	Category  Category
	Timestamp uint32 // usec, shared by every event in the batch
	Events    []*ars430.Event
}

// Detections returns the total detection count across the batch.
func (b *Batch) Detections() int {
	n := 0
	for _, e := range b.Events {
		n += len(e.Detections)
	}
	return n
}

// Aggregator buffers NEAR and FAR event packets until a timestamp boundary
// is crossed, then emits the completed batch through the flush callback.
//
// The two buffers are the only mutable state in the decode path. A single
// mutex serialises access so packets may be fed from any goroutine; the
// flush callback runs inside Add's mutual-exclusion scope in arrival order.
type Aggregator struct {
	mu    sync.Mutex
	near  []*ars430.Event
	far   []*ars430.Event
	flush func(*Batch)
}

// NewAggregator returns an aggregator that hands completed batches to flush.
func NewAggregator(flush func(*Batch)) *Aggregator {
	if flush == nil {
		flush = func(*Batch) {}
	}
	return &Aggregator{flush: flush}
}

// Add routes one decoded event packet into its category buffer. If the
// packet's timestamp differs from the buffered cycle, the buffered packets
// are flushed first and the new packet seeds the next cycle. Buffer mutation
// is atomic per event: a flush and the subsequent reseed happen under one
// lock acquisition.
func (a *Aggregator) Add(e *ars430.Event) error {
	cat, ok := CategoryOf(e.EventType)
	if !ok {
		return fmt.Errorf("batch: event type %v has no category", e.EventType)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	buf := a.buffer(cat)
	if len(*buf) > 0 && (*buf)[len(*buf)-1].Timestamp != e.Timestamp {
		a.emit(cat, *buf)
		*buf = nil
	}
	*buf = append(*buf, e)
	return nil
}

// Flush drains both pending buffers regardless of timestamps. Intended for
// shutdown so the tail cycle is not silently dropped.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, cat := range []Category{CategoryNear, CategoryFar} {
		buf := a.buffer(cat)
		if len(*buf) > 0 {
			a.emit(cat, *buf)
			*buf = nil
		}
	}
}

// Pending reports how many event packets are buffered for a category.
func (a *Aggregator) Pending(cat Category) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(*a.buffer(cat))
}

func (a *Aggregator) buffer(cat Category) *[]*ars430.Event {
	if cat == CategoryNear {
		return &a.near
	}
	return &a.far
}

// emit wraps a full buffer into a Batch and invokes the flush callback.
// Caller holds the mutex.
func (a *Aggregator) emit(cat Category, events []*ars430.Event) {
	a.flush(&Batch{
		ID:        uuid.NewString(),
		Category:  cat,
		Timestamp: events[0].Timestamp,
		Events:    events,
	})
}
