package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/storage"
)

// Export renders one station's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.StationID <= 0 {
		return errors.New("--station is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if d.history == nil {
		return errors.New("database not configured; price history is unavailable")
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	samples, err := d.history.ListSamples(ctx, opts.StationID, from, to)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Int64("station_id", opts.StationID).Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(samples, opts.MaxPoints)
	a.Logger.Info().Int("total", len(samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, opts.StationID, downsampled); err != nil {
			return err
		}
	}

	return nil
}

// downsampleSamples thins the series to at most max points per fuel,
// keeping the first and last observation of each.
func downsampleSamples(samples []storage.Sample, max int) []storage.Sample {
	if max <= 0 {
		return samples
	}

	byFuel := map[fuel.Key][]storage.Sample{}
	for _, sample := range samples {
		byFuel[sample.Fuel] = append(byFuel[sample.Fuel], sample)
	}

	var result []storage.Sample
	for _, series := range byFuel {
		if len(series) <= max {
			result = append(result, series...)
			continue
		}
		step := float64(len(series)-1) / float64(max-1)
		for i := 0; i < max; i++ {
			idx := int(math.Round(step * float64(i)))
			if idx >= len(series) {
				idx = len(series) - 1
			}
			result = append(result, series[idx])
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RecordedAt.Equal(result[j].RecordedAt) {
			return result[i].Fuel < result[j].Fuel
		}
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result
}

func writeSamplesCSV(path string, samples []storage.Sample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"recorded_at", "fuel", "price_eur", "price_updated_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		updatedAt := ""
		if sample.PriceUpdatedAt != nil {
			updatedAt = sample.PriceUpdatedAt.Format(time.RFC3339)
		}
		record := []string{
			sample.RecordedAt.Format(time.RFC3339),
			string(sample.Fuel),
			sample.Price.StringFixed(3),
			updatedAt,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path string, stationID int64, samples []storage.Sample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	type points struct {
		x []time.Time
		y []float64
	}
	byFuel := map[fuel.Key]*points{}
	for _, sample := range samples {
		series, ok := byFuel[sample.Fuel]
		if !ok {
			series = &points{}
			byFuel[sample.Fuel] = series
		}
		series.x = append(series.x, sample.RecordedAt)
		series.y = append(series.y, sample.Price.InexactFloat64())
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.3f")
	}

	var series []chart.Series
	for _, key := range fuel.Keys() {
		pts, ok := byFuel[key]
		if !ok || len(pts.x) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    key.Label(),
			XValues: pts.x,
			YValues: pts.y,
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex(strings.TrimPrefix(key.Color(), "#")),
			},
		})
	}
	if len(series) == 0 {
		return errors.New("not enough samples to plot")
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Station %d fuel prices", stationID),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (EUR/L)",
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
