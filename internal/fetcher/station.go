package fetcher

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

// Station is one record from the feed: identity, location, and a quote per
// fuel the station actually sells.
type Station struct {
	ID         int64
	Address    string
	PostalCode string
	City       string
	Prices     fuel.PriceMap
}

// UnmarshalJSON folds the feed's flat {fuel}_prix/{fuel}_maj columns into
// the Prices map, keeping only fuels that carry a price. Ids arrive as
// numbers from the feed but as strings from older persisted state.
func (s *Station) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := parseID(raw["id"])
	if err != nil {
		return fmt.Errorf("station id: %w", err)
	}
	s.ID = id

	if err := unmarshalString(raw["adresse"], &s.Address); err != nil {
		return err
	}
	if err := unmarshalString(raw["cp"], &s.PostalCode); err != nil {
		return err
	}
	if err := unmarshalString(raw["ville"], &s.City); err != nil {
		return err
	}

	s.Prices = fuel.PriceMap{}
	for _, key := range fuel.Keys() {
		priceRaw, ok := raw[string(key)+"_prix"]
		if !ok || string(priceRaw) == "null" {
			continue
		}
		var price decimal.Decimal
		if err := json.Unmarshal(priceRaw, &price); err != nil {
			return fmt.Errorf("%s price: %w", key, err)
		}
		quote := fuel.Quote{Price: price}
		if majRaw, ok := raw[string(key)+"_maj"]; ok && string(majRaw) != "null" {
			if err := unmarshalString(majRaw, &quote.UpdatedAt); err != nil {
				return err
			}
		}
		s.Prices[key] = quote
	}
	return nil
}

// MarshalJSON emits the feed's flat record shape so persisted station data
// round-trips through the same decoder.
func (s Station) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":      s.ID,
		"adresse": s.Address,
		"cp":      s.PostalCode,
		"ville":   s.City,
	}
	for key, quote := range s.Prices {
		out[string(key)+"_prix"] = quote.Price
		if quote.UpdatedAt != "" {
			out[string(key)+"_maj"] = quote.UpdatedAt
		}
	}
	return json.Marshal(out)
}

func parseID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing")
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.Int64()
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, err
	}
	return strconv.ParseInt(str, 10, 64)
}

func unmarshalString(raw json.RawMessage, dst *string) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
