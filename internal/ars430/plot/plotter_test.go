package plot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

func plotBatch(timestamp uint32) *batch.Batch {
	return &batch.Batch{
		ID:        uuid.NewString(),
		Category:  batch.CategoryNear,
		Timestamp: timestamp,
		Events: []*ars430.Event{{
			Timestamp: timestamp,
			EventType: ars430.HeaderNear0,
			Detections: []ars430.Detection{
				{Range: 10.0, AzimuthalAngle0: 0.1},
				{Range: 25.0, AzimuthalAngle0: -0.3},
			},
		}},
	}
}

func TestBatchPlotter_WritesPNG(t *testing.T) {
	dir := t.TempDir()
	bp, err := NewBatchPlotter(dir, time.Millisecond)
	if err != nil {
		t.Fatalf("NewBatchPlotter failed: %v", err)
	}

	if err := bp.PublishBatch(plotBatch(1000)); err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}

	path := filepath.Join(dir, "batch_NEAR_1000.png")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected plot file at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Error("Expected non-empty plot file")
	}
}

func TestBatchPlotter_RateLimits(t *testing.T) {
	dir := t.TempDir()
	bp, err := NewBatchPlotter(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewBatchPlotter failed: %v", err)
	}

	if err := bp.PublishBatch(plotBatch(1000)); err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	// Second batch inside the interval is skipped
	if err := bp.PublishBatch(plotBatch(2000)); err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 plot file, got %d", len(entries))
	}
}

func TestBatchPlotter_IgnoresStatus(t *testing.T) {
	bp, err := NewBatchPlotter(t.TempDir(), time.Millisecond)
	if err != nil {
		t.Fatalf("NewBatchPlotter failed: %v", err)
	}
	if err := bp.PublishStatus(&ars430.Status{}); err != nil {
		t.Errorf("PublishStatus returned error: %v", err)
	}
}
