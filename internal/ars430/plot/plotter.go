// Package plot writes top-down PNG scatter plots of detection batches for
// offline inspection. This is a field-debugging aid, not a data product.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ars430.report/internal/ars430"
	"github.com/banshee-data/ars430.report/internal/ars430/batch"
)

// BatchPlotter renders batches to PNG files in outputDir. It satisfies the
// pipeline's publisher interface; status frames are ignored. Rendering is
// rate-limited so a live sensor doesn't fill the disk.
type BatchPlotter struct {
	mu          sync.Mutex
	outputDir   string
	minInterval time.Duration
	lastPlot    map[batch.Category]time.Time
}

// NewBatchPlotter creates a plotter writing into outputDir, rendering at
// most one plot per category per minInterval.
func NewBatchPlotter(outputDir string, minInterval time.Duration) (*BatchPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	if minInterval == 0 {
		minInterval = 10 * time.Second
	}
	return &BatchPlotter{
		outputDir:   outputDir,
		minInterval: minInterval,
		lastPlot:    make(map[batch.Category]time.Time),
	}, nil
}

func (bp *BatchPlotter) PublishStatus(*ars430.Status) error { return nil }

func (bp *BatchPlotter) PublishBatch(b *batch.Batch) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	now := time.Now()
	if now.Sub(bp.lastPlot[b.Category]) < bp.minInterval {
		return nil
	}
	bp.lastPlot[b.Category] = now

	return bp.render(b)
}

// render draws the batch as an X/Y scatter with the sensor at the origin
// and boresight along +X.
func (bp *BatchPlotter) render(b *batch.Batch) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s batch %s (%d detections)", b.Category, b.ID, b.Detections())
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, 0, b.Detections())
	for _, e := range b.Events {
		for _, d := range e.Detections {
			pts = append(pts, plotter.XY{
				X: d.Range * math.Cos(d.AzimuthalAngle0),
				Y: d.Range * math.Sin(d.AzimuthalAngle0),
			})
		}
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 158, B: 137, A: 255}
	p.Add(scatter)

	// Origin marker for the sensor position
	origin, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return fmt.Errorf("failed to build origin marker: %w", err)
	}
	origin.GlyphStyle.Radius = vg.Points(4)
	origin.GlyphStyle.Color = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	p.Add(origin)
	p.Legend.Add("sensor", origin)

	file := filepath.Join(bp.outputDir,
		fmt.Sprintf("batch_%s_%d.png", b.Category, b.Timestamp))
	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
