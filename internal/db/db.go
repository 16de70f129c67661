// Package db persists decoded radar telemetry to SQLite: status frames,
// detection batches, and the per-detection measurements inside them.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the SQLite database at path. The schema is
// managed by migrations; call MigrateUp before recording.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps the recorder from blocking API reads during batch inserts.
	if _, err := sqlDB.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{sqlDB}, nil
}

// RecordStatus inserts one decoded status frame.
func (db *DB) RecordStatus(status *ars430.Status) error {
	_, err := db.Exec(`INSERT INTO status_frames (
			serial_number, part_number, assembly_part_number, sw_part_number,
			bl_version, sw_version, utc_timestamp, timestamp_us,
			current_damping_db, op_state, current_far_cf, current_near_cf,
			defective, supply_volt_limit, sensor_off_temp, gm_missing,
			tx_out_reduced, maximum_range_far_m, maximum_range_near_m
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fmt.Sprintf("%x", status.SerialNumber),
		int64(status.PartNumber), int64(status.AssemblyPartNumber), int64(status.SWPartNumber),
		int64(status.BLVersion), int64(status.SWVersion),
		int64(status.UTCTimestamp), int64(status.Timestamp),
		status.CurrentDamping,
		int64(status.OpState), int64(status.CurrentFarCF), int64(status.CurrentNearCF),
		int64(status.Defective), int64(status.SupplyVoltLimit), int64(status.SensorOffTemp),
		int64(status.GmMissing), int64(status.TxOutReduced),
		status.MaximumRangeFar, status.MaximumRangeNear,
	)
	if err != nil {
		return fmt.Errorf("failed to record status frame: %w", err)
	}
	return nil
}

// RecordBatch inserts a batch together with its events and detections in a
// single transaction. A failed insert leaves no partial batch behind.
func (db *DB) RecordBatch(b *batch.Batch) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO batches (id, category, timestamp_us, event_count, detection_count)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Category.String(), int64(b.Timestamp), len(b.Events), b.Detections(),
	); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	eventStmt, err := tx.Prepare(`INSERT INTO events (
			batch_id, event_type, sqc, message_counter, utc_timestamp, timestamp_us,
			measure_counter, cycle_counter, nof_detections, detections_in_packet,
			center_freq_ghz, vambig_mps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer eventStmt.Close()

	detStmt, err := tx.Prepare(`INSERT INTO detections (
			event_id, range_m, radial_velocity_mps, azimuth0_rad, azimuth1_rad,
			elevation_rad, rcs0_dbm2, rcs1_dbm2, prob_az0, prob_az1,
			range_variance, velocity_variance, az0_variance, az1_variance,
			elevation_variance, prob_false_detection, pdh0_raw, snr_dbr
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare detection insert: %w", err)
	}
	defer detStmt.Close()

	for _, e := range b.Events {
		res, err := eventStmt.Exec(
			b.ID, e.EventType.String(), int64(e.SQC), int64(e.MessageCounter),
			int64(e.UtcTimeStamp), int64(e.Timestamp),
			int64(e.MeasureCounter), int64(e.CycleCounter),
			int64(e.NofDetections), int64(e.DetectionsInPacket),
			int64(e.CenterFreq), e.Vambig,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		eventID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read event id: %w", err)
		}

		for _, d := range e.Detections {
			if _, err := detStmt.Exec(
				eventID, d.Range, d.RelativeRadialVelocity,
				d.AzimuthalAngle0, d.AzimuthalAngle1, d.ElevationAngle,
				d.RadarCrossSection0, d.RadarCrossSection1,
				d.ProbabilityAz0, d.ProbabilityAz1,
				d.RangeVariance, d.RadialVelocityVariance,
				d.Az0Variance, d.Az1Variance, d.ElAngleVariance,
				d.ProbabilityFalseDetection, int64(d.Pdh0Raw), d.SNR,
			); err != nil {
				return fmt.Errorf("failed to insert detection: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// BatchSummary is one row of the recent-batches listing.
type BatchSummary struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	TimestampUs    int64     `json:"timestamp_us"`
	EventCount     int       `json:"event_count"`
	DetectionCount int       `json:"detection_count"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// RecentBatches returns the most recently recorded batches, newest first.
func (db *DB) RecentBatches(limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, category, timestamp_us, event_count, detection_count, recorded_at
		 FROM batches ORDER BY recorded_at DESC, timestamp_us DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []BatchSummary
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.ID, &b.Category, &b.TimestampUs, &b.EventCount, &b.DetectionCount, &b.RecordedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

// BatchStats aggregates the recorded batch tables per category.
type BatchStats struct {
	Category        string  `json:"category"`
	BatchCount      int64   `json:"batch_count"`
	DetectionCount  int64   `json:"detection_count"`
	AvgDetections   float64 `json:"avg_detections_per_batch"`
	LastTimestampUs int64   `json:"last_timestamp_us"`
}

// BatchStatsByCategory summarises recorded batches grouped by category.
func (db *DB) BatchStatsByCategory() ([]BatchStats, error) {
	rows, err := db.Query(
		`SELECT category, COUNT(*), COALESCE(SUM(detection_count), 0),
			COALESCE(AVG(detection_count), 0), COALESCE(MAX(timestamp_us), 0)
		 FROM batches GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []BatchStats
	for rows.Next() {
		var s BatchStats
		if err := rows.Scan(&s.Category, &s.BatchCount, &s.DetectionCount, &s.AvgDetections, &s.LastTimestampUs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// StatusRow is the persisted view of a status frame.
type StatusRow struct {
	SerialNumber     string    `json:"serial_number"`
	SWVersion        int64     `json:"sw_version"`
	UTCTimestamp     int64     `json:"utc_timestamp"`
	TimestampUs      int64     `json:"timestamp_us"`
	CurrentDamping   float64   `json:"current_damping_db"`
	OpState          int64     `json:"op_state"`
	Defective        int64     `json:"defective"`
	MaximumRangeFar  float64   `json:"maximum_range_far_m"`
	MaximumRangeNear float64   `json:"maximum_range_near_m"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// LatestStatus returns the most recently recorded status frame summary, or
// nil when no status has been seen.
func (db *DB) LatestStatus() (*StatusRow, error) {
	row := db.QueryRow(
		`SELECT serial_number, sw_version, utc_timestamp, timestamp_us,
			current_damping_db, op_state, defective,
			maximum_range_far_m, maximum_range_near_m, recorded_at
		 FROM status_frames ORDER BY recorded_at DESC LIMIT 1`)

	var s StatusRow
	err := row.Scan(&s.SerialNumber, &s.SWVersion, &s.UTCTimestamp, &s.TimestampUs,
		&s.CurrentDamping, &s.OpState, &s.Defective,
		&s.MaximumRangeFar, &s.MaximumRangeNear, &s.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
