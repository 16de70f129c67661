// Package publish defines the egress boundary of the decoder: everything
// downstream of decode-and-batch receives records through the Publisher
// interface. Implementations in this module log, persist to SQLite, cache in
// Redis, or feed the API's in-memory view; the composite fans out to all of
// them.
package publish

import (
	"errors"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
	"github.com/banshee-data/ars430.report/internal/monitoring"
)

// Publisher receives decoded records. PublishStatus is called once per
// STATUS packet, immediately on decode; PublishBatch is called once per
// flushed per-cycle batch. Implementations must tolerate concurrent calls.
type Publisher interface {
	PublishStatus(s *ars430.Status) error
	PublishBatch(b *batch.Batch) error
}

// Multi fans a record out to every publisher in order, continuing past
// failures and joining the errors.
type Multi []Publisher

func (m Multi) PublishStatus(s *ars430.Status) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishStatus(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PublishBatch(b *batch.Batch) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishBatch(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes one diagnostic line per record through the monitoring
// logger. Useful on its own in dev mode and as a liveness signal alongside
// the persistent publishers.
type LogPublisher struct{}

func (LogPublisher) PublishStatus(s *ars430.Status) error {
	monitoring.Logf("status: op_state=%d defective=%d damping=%.2fdB range_far=%.1fm range_near=%.1fm ts=%dus",
		s.OpState, s.Defective, s.CurrentDamping, s.MaximumRangeFar, s.MaximumRangeNear, s.Timestamp)
	return nil
}

func (LogPublisher) PublishBatch(b *batch.Batch) error {
	monitoring.Logf("batch %s: category=%s ts=%dus packets=%d detections=%d",
		b.ID, b.Category, b.Timestamp, len(b.Events), b.Detections())
	return nil
}
