package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

func quote(s string) fuel.Quote {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return fuel.Quote{Price: v, UpdatedAt: "2026-08-30T06:12:00"}
}

func row(t *testing.T, card StationCard, key fuel.Key) Row {
	t.Helper()
	for _, r := range card.Rows {
		if r.Fuel == key {
			return r
		}
	}
	t.Fatalf("station %d has no %s row", card.ID, key)
	return Row{}
}

func TestBuildEmpty(t *testing.T) {
	v := Build(Input{})
	if !v.Empty {
		t.Fatal("no tracked stations should yield the empty view")
	}
	if len(v.Stations) != 0 {
		t.Fatalf("stations = %v", v.Stations)
	}
}

func TestBuildEmptyKeepsLastCheck(t *testing.T) {
	checked := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	v := Build(Input{LastCheck: checked, HasLastCheck: true})
	if !v.Empty {
		t.Fatal("expected empty view")
	}
	if v.LastCheck == nil || !v.LastCheck.Equal(checked) {
		t.Fatalf("lastCheck = %v", v.LastCheck)
	}
}

func TestReferenceSortsFirst(t *testing.T) {
	in := Input{
		TrackedIDs:   []int64{5, 2, 9},
		Current:      map[int64]fuel.PriceMap{},
		ReferenceID:  2,
		HasReference: true,
	}
	v := Build(in)

	got := []int64{v.Stations[0].ID, v.Stations[1].ID, v.Stations[2].ID}
	if got[0] != 2 || got[1] != 5 || got[2] != 9 {
		t.Fatalf("order = %v, want [2 5 9]", got)
	}
	if !v.Stations[0].IsReference {
		t.Fatal("first card should be the reference")
	}
}

func TestUntrackedReferenceIgnored(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1, 2},
		Current: map[int64]fuel.PriceMap{
			1: {fuel.Gazole: quote("1.800")},
			2: {fuel.Gazole: quote("1.700")},
		},
		ReferenceID:  99,
		HasReference: true,
	}
	v := Build(in)

	if v.Stations[0].ID != 1 {
		t.Fatalf("order should be untouched, got %d first", v.Stations[0].ID)
	}
	for _, card := range v.Stations {
		if card.IsReference {
			t.Fatal("no card should be the reference")
		}
		for _, r := range card.Rows {
			if r.Comparison != ComparisonNeutral {
				t.Fatalf("without a reference every cell is neutral, got %s", r.Comparison)
			}
		}
	}
}

func TestMinPricesSkipMissingFuels(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1, 2},
		Current: map[int64]fuel.PriceMap{
			1: {fuel.Gazole: quote("1.859"), fuel.E85: quote("0.789")},
			2: {fuel.Gazole: quote("1.799")},
		},
	}
	v := Build(in)

	if !v.MinPrices[fuel.Gazole].Equal(decimal.RequireFromString("1.799")) {
		t.Fatalf("gazole min = %s", v.MinPrices[fuel.Gazole])
	}
	if !v.MinPrices[fuel.E85].Equal(decimal.RequireFromString("0.789")) {
		t.Fatalf("e85 min = %s", v.MinPrices[fuel.E85])
	}
	if _, ok := v.MinPrices[fuel.SP95]; ok {
		t.Fatal("fuels nobody sells must have no minimum")
	}
}

func TestReferenceCheaperWhenAtMinimum(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1, 2},
		Current: map[int64]fuel.PriceMap{
			1: {fuel.Gazole: quote("1.700"), fuel.SP95: quote("1.900")},
			2: {fuel.Gazole: quote("1.800"), fuel.SP95: quote("1.850")},
		},
		ReferenceID:  1,
		HasReference: true,
	}
	v := Build(in)

	ref := v.Stations[0]
	if got := row(t, ref, fuel.Gazole).Comparison; got != ComparisonCheaper {
		t.Fatalf("reference at the minimum should be cheaper, got %s", got)
	}
	if got := row(t, ref, fuel.SP95).Comparison; got != ComparisonNeutral {
		t.Fatalf("reference above the minimum should be neutral, got %s", got)
	}
}

func TestCompetitorBelowReferenceKeepsHistoricalLabel(t *testing.T) {
	// A competitor strictly below the reference is labelled
	// "more-expensive"; the inherited naming is intentional.
	in := Input{
		TrackedIDs: []int64{1, 2, 3},
		Current: map[int64]fuel.PriceMap{
			1: {fuel.Gazole: quote("1.800")},
			2: {fuel.Gazole: quote("1.750")},
			3: {fuel.Gazole: quote("1.850")},
		},
		ReferenceID:  1,
		HasReference: true,
	}
	v := Build(in)

	for _, card := range v.Stations {
		got := row(t, card, fuel.Gazole).Comparison
		switch card.ID {
		case 2:
			if got != ComparisonMoreExpensive {
				t.Fatalf("station 2 undercuts the reference, got %s", got)
			}
		case 3:
			if got != ComparisonNeutral {
				t.Fatalf("station 3 is above the reference, got %s", got)
			}
		}
	}
}

func TestCompetitorNeutralWhenReferenceLacksFuel(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1, 2},
		Current: map[int64]fuel.PriceMap{
			1: {fuel.SP95: quote("1.900")},
			2: {fuel.Gazole: quote("1.750")},
		},
		ReferenceID:  1,
		HasReference: true,
	}
	v := Build(in)

	competitor := v.Stations[1]
	if got := row(t, competitor, fuel.Gazole).Comparison; got != ComparisonNeutral {
		t.Fatalf("no reference price for the fuel means neutral, got %s", got)
	}
}

func TestDirections(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1},
		Current: map[int64]fuel.PriceMap{
			1: {
				fuel.Gazole: quote("1.862"),
				fuel.SP95:   quote("1.859"),
				fuel.E10:    quote("1.700"),
				fuel.E85:    quote("0.789"),
			},
		},
		Previous: map[int64]fuel.PriceMap{
			1: {
				fuel.Gazole: quote("1.859"),
				fuel.SP95:   quote("1.862"),
				fuel.E10:    quote("1.7001"),
			},
		},
	}
	v := Build(in)

	card := v.Stations[0]
	if got := row(t, card, fuel.Gazole).Direction; got != fuel.DirectionUp {
		t.Fatalf("gazole direction = %s", got)
	}
	if got := row(t, card, fuel.SP95).Direction; got != fuel.DirectionDown {
		t.Fatalf("sp95 direction = %s", got)
	}
	if got := row(t, card, fuel.E10).Direction; got != fuel.DirectionStable {
		t.Fatalf("sub-milli move should be stable, got %s", got)
	}
	if got := row(t, card, fuel.E85).Direction; got != fuel.DirectionStable {
		t.Fatalf("fuel without history should be stable, got %s", got)
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1, 2, 3},
		Current:    map[int64]fuel.PriceMap{},
		Stations: map[int64]fetcher.Station{
			1: {ID: 1, Address: "1 Rue de la Paix"},
			2: {ID: 2, Address: "2 Avenue Foch"},
		},
		Names: map[int64]string{1: "Ma station"},
	}
	v := Build(in)

	if v.Stations[0].DisplayName != "Ma station" {
		t.Fatalf("override should win, got %q", v.Stations[0].DisplayName)
	}
	if v.Stations[1].DisplayName != "2 Avenue Foch" {
		t.Fatalf("address should be the fallback, got %q", v.Stations[1].DisplayName)
	}
	if v.Stations[2].DisplayName != "Station 3" {
		t.Fatalf("id placeholder should be the last resort, got %q", v.Stations[2].DisplayName)
	}
}

func TestStationWithoutPricesHasNoRows(t *testing.T) {
	in := Input{
		TrackedIDs: []int64{1},
		Current:    map[int64]fuel.PriceMap{},
	}
	v := Build(in)
	if len(v.Stations) != 1 {
		t.Fatalf("stations = %v", v.Stations)
	}
	if len(v.Stations[0].Rows) != 0 {
		t.Fatalf("no snapshot data means no rows, got %v", v.Stations[0].Rows)
	}
}
