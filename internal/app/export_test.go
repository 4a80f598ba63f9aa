package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/storage"
)

func sampleSeries(key fuel.Key, n int) []storage.Sample {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]storage.Sample, n)
	for i := range out {
		out[i] = storage.Sample{
			StationID:  1,
			Fuel:       key,
			Price:      decimal.RequireFromString("1.800").Add(decimal.New(int64(i), -3)),
			RecordedAt: base.Add(time.Duration(i) * 30 * time.Minute),
		}
	}
	return out
}

func TestDownsampleKeepsShortSeries(t *testing.T) {
	samples := sampleSeries(fuel.Gazole, 10)
	if got := downsampleSamples(samples, 100); len(got) != 10 {
		t.Fatalf("short series should be untouched, got %d", len(got))
	}
}

func TestDownsampleThinsPerFuel(t *testing.T) {
	samples := append(sampleSeries(fuel.Gazole, 100), sampleSeries(fuel.SP95, 100)...)
	got := downsampleSamples(samples, 10)

	counts := map[fuel.Key]int{}
	for _, sample := range got {
		counts[sample.Fuel]++
	}
	if counts[fuel.Gazole] != 10 || counts[fuel.SP95] != 10 {
		t.Fatalf("each fuel should be thinned to 10 points, got %v", counts)
	}

	for i := 1; i < len(got); i++ {
		if got[i].RecordedAt.Before(got[i-1].RecordedAt) {
			t.Fatal("result should be ordered by time")
		}
	}
}

func TestDownsampleKeepsEndpoints(t *testing.T) {
	samples := sampleSeries(fuel.Gazole, 50)
	got := downsampleSamples(samples, 5)

	if len(got) != 5 {
		t.Fatalf("expected 5 points, got %d", len(got))
	}
	if !got[0].RecordedAt.Equal(samples[0].RecordedAt) {
		t.Fatal("first observation must survive")
	}
	if !got[len(got)-1].RecordedAt.Equal(samples[len(samples)-1].RecordedAt) {
		t.Fatal("last observation must survive")
	}
}
