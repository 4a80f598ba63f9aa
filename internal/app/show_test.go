package app

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/view"
)

func TestRenderViewEmpty(t *testing.T) {
	var buf strings.Builder
	if err := renderView(&buf, view.View{Empty: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No tracked stations") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestRenderViewTable(t *testing.T) {
	price := decimal.RequireFromString("1.859")
	checked := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	v := view.View{
		LastCheck: &checked,
		Stations: []view.StationCard{
			{
				ID:          1,
				DisplayName: "Ma station",
				PostalCode:  "59000",
				City:        "Lille",
				IsReference: true,
				Rows: []view.Row{
					{
						Fuel:       fuel.Gazole,
						Label:      "Gazole",
						Price:      &price,
						UpdatedAt:  "2026-08-30T06:12:00",
						Comparison: view.ComparisonCheaper,
						Direction:  fuel.DirectionUp,
					},
				},
			},
			{
				ID:          2,
				DisplayName: "Station 2",
				Rows: []view.Row{
					{
						Fuel:       fuel.Gazole,
						Label:      "Gazole",
						Price:      &price,
						Comparison: view.ComparisonMoreExpensive,
						Direction:  fuel.DirectionStable,
					},
				},
			},
		},
	}

	var buf strings.Builder
	if err := renderView(&buf, v); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "* Ma station (59000 Lille)") {
		t.Fatalf("reference marker missing: %q", out)
	}
	if !strings.Contains(out, "1.859 €") {
		t.Fatalf("price missing: %q", out)
	}
	if !strings.Contains(out, "▲") {
		t.Fatalf("trend arrow missing: %q", out)
	}
	if !strings.Contains(out, "lowest") || !strings.Contains(out, "below ref") {
		t.Fatalf("comparison notes missing: %q", out)
	}
	if !strings.Contains(out, "30/08/2026 06:12") {
		t.Fatalf("feed timestamp missing: %q", out)
	}
}

func TestRenderViewMissingPrice(t *testing.T) {
	v := view.View{
		Stations: []view.StationCard{
			{ID: 1, DisplayName: "Station 1"},
		},
	}

	var buf strings.Builder
	if err := renderView(&buf, v); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Station 1") {
		t.Fatalf("station without rows should still be listed: %q", buf.String())
	}
}

func TestSanitizeInline(t *testing.T) {
	if got := sanitizeInline("  a\tb\nc  "); got != "a b c" {
		t.Fatalf("sanitizeInline = %q", got)
	}
}
