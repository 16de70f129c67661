package db

import (
	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// Recorder adapts a DB to the pipeline's publisher interface so decoded
// telemetry can be persisted from the fan-out.
type Recorder struct {
	db *DB
}

// NewRecorder wraps db as a publisher.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) PublishStatus(status *ars430.Status) error {
	return r.db.RecordStatus(status)
}

func (r *Recorder) PublishBatch(b *batch.Batch) error {
	return r.db.RecordBatch(b)
}
