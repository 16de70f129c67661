package db

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// Tests run in the package directory, so the migrations live right here.
const testMigrationsDir = "migrations"

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radar.db")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func testStatus() *ars430.Status {
	return &ars430.Status{
		PartNumber:       0x1122334455667788,
		SWVersion:        0x010203,
		UTCTimestamp:     1700000000000000000,
		Timestamp:        123456,
		CurrentDamping:   -1.5,
		Defective:        0,
		MaximumRangeFar:  250.0,
		MaximumRangeNear: 70.0,
	}
}

func testBatch(category batch.Category, timestamp uint32, detections int) *batch.Batch {
	eventType := ars430.HeaderNear0
	if category == batch.CategoryFar {
		eventType = ars430.HeaderFar0
	}

	event := &ars430.Event{
		Timestamp:          timestamp,
		UtcTimeStamp:       1700000000000000000,
		MeasureCounter:     42,
		CycleCounter:       7,
		NofDetections:      uint16(detections),
		DetectionsInPacket: uint8(detections),
		CenterFreq:         77,
		Vambig:             55.5,
		EventType:          eventType,
	}
	for i := 0; i < detections; i++ {
		event.Detections = append(event.Detections, ars430.Detection{
			Range:                  float64(10 + i),
			RelativeRadialVelocity: 2.5,
			AzimuthalAngle0:        0.1,
			SNR:                    20.0,
		})
	}

	return &batch.Batch{
		ID:        uuid.NewString(),
		Category:  category,
		Timestamp: timestamp,
		Events:    []*ars430.Event{event},
	}
}

func TestMigrateVersion(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("Expected clean migration state")
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateDown(testMigrationsDir); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='batches'`).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Error("Expected batches table to be dropped")
	}
}

func TestRecordStatus(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RecordStatus(testStatus()); err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}

	latest, err := db.LatestStatus()
	if err != nil {
		t.Fatalf("LatestStatus failed: %v", err)
	}
	if latest == nil {
		t.Fatal("Expected a status row, got nil")
	}
	if latest.TimestampUs != 123456 {
		t.Errorf("Expected timestamp 123456, got %d", latest.TimestampUs)
	}
	if latest.CurrentDamping != -1.5 {
		t.Errorf("Expected damping -1.5, got %f", latest.CurrentDamping)
	}
	if latest.MaximumRangeFar != 250.0 {
		t.Errorf("Expected far range 250, got %f", latest.MaximumRangeFar)
	}
}

func TestLatestStatus_Empty(t *testing.T) {
	db := setupTestDB(t)

	latest, err := db.LatestStatus()
	if err != nil {
		t.Fatalf("LatestStatus failed: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected nil status on empty table, got %+v", latest)
	}
}

func TestRecordBatch(t *testing.T) {
	db := setupTestDB(t)

	b := testBatch(batch.CategoryNear, 5000, 3)
	if err := db.RecordBatch(b); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}

	var eventCount, detectionCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&eventCount); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM detections").Scan(&detectionCount); err != nil {
		t.Fatalf("Failed to count detections: %v", err)
	}
	if eventCount != 1 {
		t.Errorf("Expected 1 event row, got %d", eventCount)
	}
	if detectionCount != 3 {
		t.Errorf("Expected 3 detection rows, got %d", detectionCount)
	}
}

func TestRecentBatches(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 3; i++ {
		b := testBatch(batch.CategoryFar, uint32(1000*(i+1)), 2)
		if err := db.RecordBatch(b); err != nil {
			t.Fatalf("RecordBatch failed: %v", err)
		}
	}

	batches, err := db.RecentBatches(2)
	if err != nil {
		t.Fatalf("RecentBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	if batches[0].TimestampUs != 3000 {
		t.Errorf("Expected newest batch first (timestamp 3000), got %d", batches[0].TimestampUs)
	}
	if batches[0].Category != "FAR" {
		t.Errorf("Expected category FAR, got %s", batches[0].Category)
	}
	if batches[0].DetectionCount != 2 {
		t.Errorf("Expected 2 detections, got %d", batches[0].DetectionCount)
	}
}

func TestBatchStatsByCategory(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RecordBatch(testBatch(batch.CategoryNear, 1000, 4)); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}
	if err := db.RecordBatch(testBatch(batch.CategoryNear, 2000, 2)); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}
	if err := db.RecordBatch(testBatch(batch.CategoryFar, 1500, 5)); err != nil {
		t.Fatalf("RecordBatch failed: %v", err)
	}

	stats, err := db.BatchStatsByCategory()
	if err != nil {
		t.Fatalf("BatchStatsByCategory failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(stats))
	}

	// Rows are ordered by category name: FAR before NEAR
	far, near := stats[0], stats[1]
	if far.Category != "FAR" || far.BatchCount != 1 || far.DetectionCount != 5 {
		t.Errorf("Unexpected FAR stats: %+v", far)
	}
	if near.Category != "NEAR" || near.BatchCount != 2 || near.DetectionCount != 6 {
		t.Errorf("Unexpected NEAR stats: %+v", near)
	}
	if near.AvgDetections != 3.0 {
		t.Errorf("Expected NEAR avg 3.0, got %f", near.AvgDetections)
	}
	if near.LastTimestampUs != 2000 {
		t.Errorf("Expected NEAR last timestamp 2000, got %d", near.LastTimestampUs)
	}
}

func TestRecorder_Publishes(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder(db)

	if err := rec.PublishStatus(testStatus()); err != nil {
		t.Fatalf("PublishStatus failed: %v", err)
	}
	if err := rec.PublishBatch(testBatch(batch.CategoryNear, 9000, 1)); err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count); err != nil {
		t.Fatalf("Failed to count batches: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 batch, got %d", count)
	}
}
