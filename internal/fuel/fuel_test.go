package fuel

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		old  string
		new  string
		want Direction
	}{
		{"sub-milli move is stable", "1.459", "1.4591", DirectionStable},
		{"equal is stable", "1.459", "1.459", DirectionStable},
		{"up", "1.459", "1.462", DirectionUp},
		{"down", "1.462", "1.459", DirectionDown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oldPrice, newPrice := d(tc.old), d(tc.new)
			if got := Classify(&oldPrice, &newPrice); got != tc.want {
				t.Fatalf("Classify(%s, %s) = %s, want %s", tc.old, tc.new, got, tc.want)
			}
		})
	}
}

func TestClassifyMissingSide(t *testing.T) {
	price := d("1.500")
	if got := Classify(nil, &price); got != DirectionStable {
		t.Fatalf("missing old should be stable, got %s", got)
	}
	if got := Classify(&price, nil); got != DirectionStable {
		t.Fatalf("missing new should be stable, got %s", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(d("1.4596")); !got.Equal(d("1.460")) {
		t.Fatalf("Round(1.4596) = %s, want 1.460", got)
	}
}

func TestParseFeedTimeStripsOffset(t *testing.T) {
	// The feed stores local wall-clock time mislabelled with an offset;
	// both values below must parse to the same local instant.
	a, ok := ParseFeedTime("2026-08-30T14:05:00+00:00")
	if !ok {
		t.Fatal("offset timestamp should parse")
	}
	b, ok := ParseFeedTime("2026-08-30T14:05:00")
	if !ok {
		t.Fatal("bare timestamp should parse")
	}
	if !a.Equal(b) {
		t.Fatalf("offset should be ignored: %s vs %s", a, b)
	}
	if a.Hour() != 14 || a.Minute() != 5 {
		t.Fatalf("wall clock must be preserved, got %s", a)
	}
}

func TestParseFeedTimeInvalid(t *testing.T) {
	if _, ok := ParseFeedTime(""); ok {
		t.Fatal("empty timestamp should not parse")
	}
	if _, ok := ParseFeedTime("not-a-date"); ok {
		t.Fatal("garbage timestamp should not parse")
	}
}

func TestFormatFeedTime(t *testing.T) {
	if got := FormatFeedTime("2026-08-30T14:05:00+02:00"); got != "30/08/2026 14:05" {
		t.Fatalf("FormatFeedTime = %q", got)
	}
	if got := FormatFeedTime("bogus"); got != "—" {
		t.Fatalf("unparseable timestamp should render a dash, got %q", got)
	}
}

func TestKeysAndCatalogue(t *testing.T) {
	keys := Keys()
	if len(keys) != 6 {
		t.Fatalf("expected 6 fuels, got %d", len(keys))
	}
	if keys[0] != Gazole {
		t.Fatalf("gazole should lead the display order, got %s", keys[0])
	}
	for _, key := range keys {
		if !Valid(key) {
			t.Fatalf("%s should be valid", key)
		}
		if key.Label() == "" || key.Color() == "" {
			t.Fatalf("%s is missing catalogue metadata", key)
		}
	}
	if Valid(Key("diesel")) {
		t.Fatal("unknown fuel should be invalid")
	}
}
