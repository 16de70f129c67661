package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// handleBatchChart renders a quick top-down scatter plot (HTML) of the most
// recent batch using go-echarts. This is a debugging-only endpoint (no auth)
// to eyeball the detection field without a frontend.
// Query params:
//   - category (optional; "NEAR" or "FAR", defaults to NEAR)
func (s *Server) handleBatchChart(w http.ResponseWriter, r *http.Request) {
	cat := batch.CategoryNear
	if c := r.URL.Query().Get("category"); c == "FAR" {
		cat = batch.CategoryFar
	}

	b := s.cache.Batch(cat)
	if b == nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no %s batch received yet", cat))
		return
	}

	data := make([]opts.ScatterData, 0, b.Detections())
	maxAbs := 0.0
	maxSNR := 0.0
	for _, e := range b.Events {
		for _, d := range e.Detections {
			// Project polar (range, azimuth) onto the road plane. X points
			// along boresight, Y to the sensor's left.
			x := d.Range * math.Cos(d.AzimuthalAngle0)
			y := d.Range * math.Sin(d.AzimuthalAngle0)
			if math.Abs(x) > maxAbs {
				maxAbs = math.Abs(x)
			}
			if math.Abs(y) > maxAbs {
				maxAbs = math.Abs(y)
			}
			if d.SNR > maxSNR {
				maxSNR = d.SNR
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, d.SNR}})
		}
	}

	// Add a small padding so points at the edges are visible
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxSNR == 0 {
		maxSNR = 1
	}

	// Force a square plot with symmetric axis ranges
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "ARS430 Detections (Polar->XY)", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "ARS430 Detection Field", Subtitle: fmt.Sprintf("category=%s batch=%s detections=%d", cat, b.ID, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxSNR),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("detections", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
