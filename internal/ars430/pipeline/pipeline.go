// Package pipeline wires the decode stages together: one raw UDP payload in,
// one classify/decode/route step out. STATUS packets publish immediately;
// event packets flow through the batch aggregator and publish when a cycle
// flushes.
package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
	"github.com/banshee-data/ars430.report/internal/ars430/publish"
	"github.com/banshee-data/ars430.report/internal/monitoring"
)

// Config contains the pipeline's collaborators and policy toggles.
type Config struct {
	Publisher publish.Publisher

	// Immediate disables cycle batching: every event packet is published on
	// arrival as a single-element batch. Useful for low-latency consumers
	// that do their own accumulation.
	Immediate bool

	Stats *Stats
}

// Pipeline decodes raw ARS430 payloads and routes the records. It owns the
// batch aggregator; decode failures never touch aggregator state.
type Pipeline struct {
	pub       publish.Publisher
	agg       *batch.Aggregator
	immediate bool
	stats     *Stats
}

// New creates a pipeline. A nil publisher gets the log publisher so the
// pipeline is always safe to run.
func New(cfg Config) *Pipeline {
	pub := cfg.Publisher
	if pub == nil {
		pub = publish.LogPublisher{}
	}
	stats := cfg.Stats
	if stats == nil {
		stats = &Stats{}
	}
	p := &Pipeline{
		pub:       pub,
		immediate: cfg.Immediate,
		stats:     stats,
	}
	p.agg = batch.NewAggregator(p.publishBatch)
	return p
}

// HandlePacket processes one raw payload from the transport. Decode failures
// are reported to the caller per packet; the listener counts and skips them.
func (p *Pipeline) HandlePacket(data []byte) error {
	start := time.Now()
	defer monitoring.ObserveDecodeLatency(start)

	p.stats.addPacket(len(data))
	monitoring.PacketsReceived.Inc()
	monitoring.BytesReceived.Add(float64(len(data)))

	header, err := ars430.ClassifyHeader(data)
	if err != nil {
		p.stats.addDecodeError()
		monitoring.DecodeErrors.WithLabelValues(errorKind(err)).Inc()
		return err
	}

	payload := data[ars430.HEADER_LEN:]

	if header.Type.IsStatus() {
		status, err := ars430.DecodeStatus(payload)
		if err != nil {
			p.stats.addDecodeError()
			monitoring.DecodeErrors.WithLabelValues(errorKind(err)).Inc()
			return err
		}
		p.stats.addStatus()
		monitoring.StatusPackets.Inc()
		// Status reports bypass the aggregator and publish per arrival.
		if err := p.pub.PublishStatus(status); err != nil {
			monitoring.PublishErrors.Inc()
			return err
		}
		return nil
	}

	event, err := ars430.DecodeEvent(payload)
	if err != nil {
		p.stats.addDecodeError()
		monitoring.DecodeErrors.WithLabelValues(errorKind(err)).Inc()
		return err
	}
	event.EventType = header.Type

	p.stats.addEvent(len(event.Detections))
	monitoring.EventPackets.WithLabelValues(header.Type.String()).Inc()
	monitoring.DetectionsDecoded.Add(float64(len(event.Detections)))

	if p.immediate {
		return p.publishImmediate(event)
	}
	return p.agg.Add(event)
}

// Flush drains the aggregator's pending buffers, publishing the tail cycles.
// Called on shutdown.
func (p *Pipeline) Flush() {
	p.agg.Flush()
}

// Aggregator exposes the pipeline's aggregator for introspection endpoints.
func (p *Pipeline) Aggregator() *batch.Aggregator { return p.agg }

// Stats exposes the pipeline's counters.
func (p *Pipeline) Stats() *Stats { return p.stats }

// publishImmediate publishes one event packet as a single-element batch,
// applying the same empty-packet gate as the batching path.
func (p *Pipeline) publishImmediate(e *ars430.Event) error {
	cat, ok := batch.CategoryOf(e.EventType)
	if !ok {
		return errors.New("pipeline: event without category")
	}
	if e.DetectionsInPacket == 0 {
		p.stats.addSuppressed()
		monitoring.EmptyEventsSuppressed.Inc()
		return nil
	}
	b := &batch.Batch{
		ID:        uuid.NewString(),
		Category:  cat,
		Timestamp: e.Timestamp,
		Events:    []*ars430.Event{e},
	}
	p.publishBatch(b)
	return nil
}

// publishBatch is the aggregator's flush callback. Event packets that
// declared zero detections were still decoded and batched, but a batch that
// carries no detections at all is withheld from publication.
func (p *Pipeline) publishBatch(b *batch.Batch) {
	p.stats.addFlush()
	monitoring.BatchesFlushed.WithLabelValues(b.Category.String()).Inc()

	if b.Detections() == 0 {
		p.stats.addSuppressed()
		monitoring.EmptyEventsSuppressed.Inc()
		return
	}

	if err := p.pub.PublishBatch(b); err != nil {
		monitoring.PublishErrors.Inc()
		monitoring.Logf("publish batch %s failed: %v", b.ID, err)
	}
}

// errorKind maps a decode error to its taxonomy label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ars430.ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ars430.ErrUnknownHeader):
		return "unknown_header"
	case errors.Is(err, ars430.ErrTruncatedPacket):
		return "truncated_packet"
	}
	return "other"
}
