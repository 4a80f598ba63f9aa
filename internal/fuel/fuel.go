// Package fuel holds the fixed catalogue of fuel types published by the
// French government price feed, plus the price comparison helpers shared
// by the merger and the view builder.
package fuel

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Key identifies one fuel type as named by the feed (gazole_prix, sp95_maj, ...).
type Key string

const (
	Gazole Key = "gazole"
	SP95   Key = "sp95"
	SP98   Key = "sp98"
	E10    Key = "e10"
	E85    Key = "e85"
	GPLc   Key = "gplc"
)

// DefaultBadgeFuel is the fuel shown on the app badge unless configured otherwise.
const DefaultBadgeFuel = Gazole

type meta struct {
	label string
	color string
}

var catalogue = map[Key]meta{
	Gazole: {label: "Gazole", color: "#FFCC02"},
	SP95:   {label: "SP95", color: "#00A651"},
	SP98:   {label: "SP98", color: "#0072BC"},
	E10:    {label: "E10", color: "#8CC63F"},
	E85:    {label: "E85", color: "#F7941D"},
	GPLc:   {label: "GPLc", color: "#9B59B6"},
}

// keyOrder fixes the display order of fuel rows.
var keyOrder = []Key{Gazole, SP95, SP98, E10, E85, GPLc}

// Keys returns all fuel keys in display order.
func Keys() []Key {
	out := make([]Key, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// Valid reports whether k names a known fuel.
func Valid(k Key) bool {
	_, ok := catalogue[k]
	return ok
}

// Label returns the human-readable fuel name.
func (k Key) Label() string {
	return catalogue[k].label
}

// Color returns the display colour associated with the fuel.
func (k Key) Color() string {
	return catalogue[k].color
}

// Quote is one fuel price as published by the feed: the price in EUR per
// litre and the feed's raw last-updated timestamp.
type Quote struct {
	Price     decimal.Decimal `json:"price"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// PriceMap maps fuel keys to quotes for a single station.
type PriceMap map[Key]Quote

// Round normalises a price to the feed's 3-decimal precision. All price
// comparisons go through this to avoid classifying float noise as a move.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(3)
}

// Direction classifies a price move.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// Classify compares an old and new price at 3-decimal rounding. A missing
// value on either side is stable.
func Classify(old, new *decimal.Decimal) Direction {
	if old == nil || new == nil {
		return DirectionStable
	}
	switch Round(*new).Cmp(Round(*old)) {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionStable
	}
}

// The feed stores French local time but labels it with a UTC offset, so the
// suffix is stripped before parsing rather than trusted.
var tzSuffix = regexp.MustCompile(`([+-]\d{2}:\d{2}|Z)$`)

// ParseFeedTime parses a feed timestamp, dropping the unreliable offset.
func ParseFeedTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	cleaned := tzSuffix.ReplaceAllString(s, "")
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, cleaned, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatFeedTime renders a feed timestamp for display, or an em dash when
// the value is absent or unparseable.
func FormatFeedTime(s string) string {
	t, ok := ParseFeedTime(s)
	if !ok {
		return "—"
	}
	return t.Format("02/01/2006 15:04")
}
