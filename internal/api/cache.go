package api

import (
	"sync"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// Latest keeps the most recent status frame and the most recent batch per
// category in memory. It satisfies the pipeline's publisher interface so the
// API can serve live state without a database round trip.
type Latest struct {
	mu      sync.RWMutex
	status  *ars430.Status
	batches map[batch.Category]*batch.Batch
}

// NewLatest returns an empty cache.
func NewLatest() *Latest {
	return &Latest{batches: make(map[batch.Category]*batch.Batch)}
}

func (l *Latest) PublishStatus(status *ars430.Status) error {
	l.mu.Lock()
	l.status = status
	l.mu.Unlock()
	return nil
}

func (l *Latest) PublishBatch(b *batch.Batch) error {
	l.mu.Lock()
	l.batches[b.Category] = b
	l.mu.Unlock()
	return nil
}

// Status returns the most recent status frame, or nil.
func (l *Latest) Status() *ars430.Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Batch returns the most recent batch for a category, or nil.
func (l *Latest) Batch(cat batch.Category) *batch.Batch {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.batches[cat]
}
