package api

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ars430.report/internal/ars430"
)

// DetectionSummary aggregates the detections of one batch for the API.
// Speeds are in the server's configured units; everything else stays in the
// sensor's native units.
type DetectionSummary struct {
	Count        int     `json:"count"`
	MeanSNR      float64 `json:"mean_snr_dbr"`
	StdDevSNR    float64 `json:"stddev_snr_dbr"`
	RangeP50     float64 `json:"range_p50_m"`
	RangeP95     float64 `json:"range_p95_m"`
	MaxRange     float64 `json:"max_range_m"`
	MeanSpeed    float64 `json:"mean_speed"`
	MaxAbsSpeed  float64 `json:"max_abs_speed"`
	MeanRCS      float64 `json:"mean_rcs_dbm2"`
	SpeedUnits   string  `json:"speed_units"`
}

// summarizeDetections computes distribution statistics over every detection
// in the given events.
func summarizeDetections(events []*ars430.Event, speedConvert func(float64) float64, speedUnits string) DetectionSummary {
	var ranges, snrs, speeds, rcs []float64
	for _, e := range events {
		for _, d := range e.Detections {
			ranges = append(ranges, d.Range)
			snrs = append(snrs, d.SNR)
			speeds = append(speeds, d.RelativeRadialVelocity)
			rcs = append(rcs, d.RadarCrossSection0)
		}
	}

	summary := DetectionSummary{Count: len(ranges), SpeedUnits: speedUnits}
	if len(ranges) == 0 {
		return summary
	}

	summary.MeanSNR = stat.Mean(snrs, nil)
	summary.StdDevSNR = stat.StdDev(snrs, nil)
	summary.MeanRCS = stat.Mean(rcs, nil)

	// Quantile requires sorted input
	sort.Float64s(ranges)
	summary.RangeP50 = stat.Quantile(0.50, stat.Empirical, ranges, nil)
	summary.RangeP95 = stat.Quantile(0.95, stat.Empirical, ranges, nil)
	summary.MaxRange = ranges[len(ranges)-1]

	summary.MeanSpeed = speedConvert(stat.Mean(speeds, nil))
	maxAbs := 0.0
	for _, v := range speeds {
		if math.Abs(v) > maxAbs {
			maxAbs = math.Abs(v)
		}
	}
	summary.MaxAbsSpeed = speedConvert(maxAbs)

	return summary
}
