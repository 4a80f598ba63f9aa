// Package view builds a display model from persisted state. Build is a
// pure function so the comparison logic is testable without any
// presentation layer; the CLI table and the HTTP API both render from the
// same View.
package view

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

// Comparison classifies a price cell against the reference station.
type Comparison string

const (
	ComparisonCheaper Comparison = "cheaper"
	// ComparisonMoreExpensive is applied to a competitor priced strictly
	// below the reference. The original front-end labelled the cheaper
	// competitor "more-expensive" (reading it as "the reference is more
	// expensive than this"); the labelling is preserved verbatim.
	ComparisonMoreExpensive Comparison = "more-expensive"
	ComparisonNeutral       Comparison = "neutral"
)

// Input is everything Build reads. All of it comes from persisted state.
type Input struct {
	TrackedIDs   []int64
	Current      map[int64]fuel.PriceMap
	Previous     map[int64]fuel.PriceMap
	Stations     map[int64]fetcher.Station
	Names        map[int64]string
	ReferenceID  int64
	HasReference bool
	LastCheck    time.Time
	HasLastCheck bool
}

// Row is one fuel line in a station card.
type Row struct {
	Fuel       fuel.Key         `json:"fuel"`
	Label      string           `json:"label"`
	Color      string           `json:"color"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	UpdatedAt  string           `json:"updatedAt,omitempty"`
	Comparison Comparison       `json:"comparison"`
	Direction  fuel.Direction   `json:"direction"`
}

// StationCard is one station in display order.
type StationCard struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	City        string `json:"city,omitempty"`
	IsReference bool   `json:"isReference"`
	Rows        []Row  `json:"rows"`
}

// View is the complete display model.
type View struct {
	Empty     bool                         `json:"empty"`
	LastCheck *time.Time                   `json:"lastCheck,omitempty"`
	MinPrices map[fuel.Key]decimal.Decimal `json:"minPrices,omitempty"`
	Stations  []StationCard                `json:"stations,omitempty"`
}

// Build derives the display model from persisted state.
func Build(in Input) View {
	out := View{}
	if in.HasLastCheck {
		t := in.LastCheck
		out.LastCheck = &t
	}

	if len(in.TrackedIDs) == 0 {
		out.Empty = true
		return out
	}

	// A reference id that is no longer tracked means "no reference".
	refID, hasRef := int64(0), false
	if in.HasReference {
		for _, id := range in.TrackedIDs {
			if id == in.ReferenceID {
				refID, hasRef = in.ReferenceID, true
				break
			}
		}
	}

	out.MinPrices = minPrices(in.TrackedIDs, in.Current)

	var refPrices fuel.PriceMap
	if hasRef {
		refPrices = in.Current[refID]
	}

	for _, id := range sortReferenceFirst(in.TrackedIDs, refID, hasRef) {
		out.Stations = append(out.Stations, buildCard(in, id, hasRef && id == refID, refPrices, out.MinPrices))
	}
	return out
}

// sortReferenceFirst moves the reference id (when tracked) to the front,
// keeping every other id in its original relative order.
func sortReferenceFirst(ids []int64, refID int64, hasRef bool) []int64 {
	if !hasRef {
		out := make([]int64, len(ids))
		copy(out, ids)
		return out
	}
	out := make([]int64, 0, len(ids))
	out = append(out, refID)
	for _, id := range ids {
		if id != refID {
			out = append(out, id)
		}
	}
	return out
}

// minPrices computes, per fuel, the lowest current price across tracked
// stations that actually carry the fuel. Fuels no station sells are absent.
func minPrices(ids []int64, current map[int64]fuel.PriceMap) map[fuel.Key]decimal.Decimal {
	mins := map[fuel.Key]decimal.Decimal{}
	for _, id := range ids {
		for key, quote := range current[id] {
			if min, ok := mins[key]; !ok || quote.Price.LessThan(min) {
				mins[key] = quote.Price
			}
		}
	}
	return mins
}

func buildCard(in Input, id int64, isRef bool, refPrices fuel.PriceMap, mins map[fuel.Key]decimal.Decimal) StationCard {
	station, hasStation := in.Stations[id]
	name := in.Names[id]

	card := StationCard{
		ID:          id,
		Name:        name,
		IsReference: isRef,
	}
	if hasStation {
		card.Address = station.Address
		card.PostalCode = station.PostalCode
		card.City = station.City
	}
	switch {
	case name != "":
		card.DisplayName = name
	case hasStation && station.Address != "":
		card.DisplayName = station.Address
	default:
		card.DisplayName = fmt.Sprintf("Station %d", id)
	}

	current := in.Current[id]
	previous := in.Previous[id]

	for _, key := range fuel.Keys() {
		// Absent from the snapshot means the station published neither a
		// price nor a timestamp for this fuel: no row at all.
		quote, hasQuote := current[key]
		if !hasQuote {
			continue
		}

		row := Row{
			Fuel:       key,
			Label:      key.Label(),
			Color:      key.Color(),
			UpdatedAt:  quote.UpdatedAt,
			Comparison: ComparisonNeutral,
			Direction:  fuel.DirectionStable,
		}
		price := quote.Price
		row.Price = &price

		if refPrices != nil {
			refQuote, refHas := refPrices[key]
			min, hasMin := mins[key]
			if isRef && refHas && hasMin && !price.GreaterThan(min) {
				row.Comparison = ComparisonCheaper
			} else if !isRef && refHas && price.LessThan(refQuote.Price) {
				row.Comparison = ComparisonMoreExpensive
			}
		}

		if prev, ok := previous[key]; ok {
			row.Direction = fuel.Classify(&prev.Price, &price)
		}

		card.Rows = append(card.Rows, row)
	}
	return card
}
