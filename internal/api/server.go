// Package api serves the decoder's HTTP surface: live sensor state, batch
// history from the database, a Prometheus endpoint, and a debug chart.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
	"github.com/banshee-data/ars430.report/internal/ars430/pipeline"
	"github.com/banshee-data/ars430.report/internal/db"
	"github.com/banshee-data/ars430.report/internal/monitoring"
	"github.com/banshee-data/ars430.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *db.DB // may be nil when persistence is disabled
	stats *pipeline.Stats
	cache *Latest
	units string
}

// NewServer builds the API server. cache must be wired into the pipeline's
// publisher fan-out so it sees live state; db may be nil.
func NewServer(database *db.DB, stats *pipeline.Stats, cache *Latest, speedUnits string) *Server {
	if !units.IsValid(speedUnits) {
		speedUnits = units.MPS
	}
	return &Server{
		db:    database,
		stats: stats,
		cache: cache,
		units: speedUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/status/latest", s.showLatestStatus)
	mux.HandleFunc("/api/batches/recent", s.listRecentBatches)
	mux.HandleFunc("/api/batches/stats", s.showBatchStats)
	mux.HandleFunc("/api/batches/summary", s.showBatchSummary)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/debug/batch/chart", s.handleBatchChart)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"ok":            true,
		"status_seen":   s.cache.Status() != nil,
		"near_received": s.cache.Batch(batch.CategoryNear) != nil,
		"far_received":  s.cache.Batch(batch.CategoryFar) != nil,
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write health")
		return
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(s.stats.Snapshot()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
		return
	}
}

// statusAPI is the wire shape of a status frame. The serial number is
// rendered as hex; everything else passes through.
type statusAPI struct {
	SerialNumber     string  `json:"serial_number"`
	PartNumber       uint64  `json:"part_number"`
	BLVersion        uint32  `json:"bl_version"`
	SWVersion        uint32  `json:"sw_version"`
	UTCTimestamp     uint64  `json:"utc_timestamp"`
	Timestamp        uint32  `json:"timestamp_us"`
	CurrentDamping   float64 `json:"current_damping_db"`
	OpState          uint8   `json:"op_state"`
	Defective        uint8   `json:"defective"`
	MaximumRangeFar  float64 `json:"maximum_range_far_m"`
	MaximumRangeNear float64 `json:"maximum_range_near_m"`
}

func statusToAPI(st *ars430.Status) statusAPI {
	return statusAPI{
		SerialNumber:     fmt.Sprintf("%x", st.SerialNumber),
		PartNumber:       st.PartNumber,
		BLVersion:        st.BLVersion,
		SWVersion:        st.SWVersion,
		UTCTimestamp:     st.UTCTimestamp,
		Timestamp:        st.Timestamp,
		CurrentDamping:   st.CurrentDamping,
		OpState:          st.OpState,
		Defective:        st.Defective,
		MaximumRangeFar:  st.MaximumRangeFar,
		MaximumRangeNear: st.MaximumRangeNear,
	}
}

func (s *Server) showLatestStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if st := s.cache.Status(); st != nil {
		if err := json.NewEncoder(w).Encode(statusToAPI(st)); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
		}
		return
	}

	// Nothing live yet; fall back to the last persisted frame
	if s.db != nil {
		row, err := s.db.LatestStatus()
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve status: %v", err))
			return
		}
		if row != nil {
			if err := json.NewEncoder(w).Encode(row); err != nil {
				s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
			}
			return
		}
	}

	s.writeJSONError(w, http.StatusNotFound, "no status frame received yet")
}

func (s *Server) listRecentBatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	limit := 100 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsedLimit, err := strconv.Atoi(l)
		if err != nil || parsedLimit < 1 || parsedLimit > 1000 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsedLimit
	}

	batches, err := s.db.RecentBatches(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve batches: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(batches); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write batches")
		return
	}
}

func (s *Server) showBatchStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	stats, err := s.db.BatchStatsByCategory()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve batch stats: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write batch stats")
		return
	}
}

func (s *Server) showBatchSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cat := batch.CategoryNear
	if c := r.URL.Query().Get("category"); c != "" {
		switch c {
		case "NEAR":
			cat = batch.CategoryNear
		case "FAR":
			cat = batch.CategoryFar
		default:
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'category' parameter")
			return
		}
	}

	b := s.cache.Batch(cat)
	if b == nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no %s batch received yet", cat))
		return
	}

	convert := func(v float64) float64 { return units.ConvertSpeed(v, s.units) }
	summary := summarizeDetections(b.Events, convert, s.units)

	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write summary")
		return
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units": s.units,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
