// Package state exposes the application's persisted projections as typed
// accessors over the durable key-value store. Unreadable values — corrupt
// JSON, legacy encodings, infrastructure hiccups on read — degrade to
// "absent"; the app renders from whatever it can still read.
package state

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/storage"
)

// Persisted key names, kept verbatim from the original web client so an
// exported localStorage dump can be imported as-is.
const (
	keyStationIDs  = "stationIds"
	keyNames       = "stationNames"
	keyReferenceID = "referenceStationId"
	keyLastPrices  = "lastPrices"
	keyPrevPrices  = "previousPrices"
	keyStationData = "lastStationData"
	keyLastCheck   = "lastCheck"
	keySettings    = "settings"
)

// Settings holds user display preferences.
type Settings struct {
	BadgeFuelType fuel.Key `json:"badgeFuelType"`
}

// DefaultSettings returns the out-of-the-box preferences.
func DefaultSettings() Settings {
	return Settings{BadgeFuelType: fuel.DefaultBadgeFuel}
}

// Snapshot carries everything a successful refresh replaces in one swap.
type Snapshot struct {
	Previous  map[int64]fuel.PriceMap
	Current   map[int64]fuel.PriceMap
	Stations  map[int64]fetcher.Station
	CheckedAt time.Time
}

// Store provides typed access to persisted application state.
type Store struct {
	kv     storage.KV
	logger zerolog.Logger
}

// New wraps a KV store with typed accessors.
func New(kv storage.KV, logger zerolog.Logger) *Store {
	return &Store{kv: kv, logger: logger.With().Str("component", "state").Logger()}
}

// StationIDs returns the ordered tracked station list.
func (s *Store) StationIDs(ctx context.Context) []int64 {
	var raw []flexID
	if !s.read(ctx, keyStationIDs, &raw) {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, int64(id))
	}
	return ids
}

// SetStationIDs replaces the tracked station list.
func (s *Store) SetStationIDs(ctx context.Context, ids []int64) error {
	return s.write(ctx, keyStationIDs, ids)
}

// StationNames returns the user-chosen name overrides.
func (s *Store) StationNames(ctx context.Context) map[int64]string {
	out := map[int64]string{}
	s.readIDMap(ctx, keyNames, func(id int64, raw json.RawMessage) {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil && name != "" {
			out[id] = name
		}
	})
	return out
}

// SetStationNames replaces the name override map.
func (s *Store) SetStationNames(ctx context.Context, names map[int64]string) error {
	return s.write(ctx, keyNames, encodeIDMap(names))
}

// ReferenceID returns the reference station id, if one is set.
func (s *Store) ReferenceID(ctx context.Context) (int64, bool) {
	var id flexID
	if !s.read(ctx, keyReferenceID, &id) {
		return 0, false
	}
	return int64(id), true
}

// SetReferenceID persists the reference station id.
func (s *Store) SetReferenceID(ctx context.Context, id int64) error {
	return s.write(ctx, keyReferenceID, id)
}

// ClearReferenceID removes the reference station.
func (s *Store) ClearReferenceID(ctx context.Context) error {
	return s.kv.Remove(ctx, keyReferenceID)
}

// LastPrices returns the current price snapshot.
func (s *Store) LastPrices(ctx context.Context) map[int64]fuel.PriceMap {
	return s.readPrices(ctx, keyLastPrices)
}

// PreviousPrices returns the snapshot preceding the current one.
func (s *Store) PreviousPrices(ctx context.Context) map[int64]fuel.PriceMap {
	return s.readPrices(ctx, keyPrevPrices)
}

// StationRecords returns the full station records from the last refresh.
func (s *Store) StationRecords(ctx context.Context) map[int64]fetcher.Station {
	out := map[int64]fetcher.Station{}
	s.readIDMap(ctx, keyStationData, func(id int64, raw json.RawMessage) {
		var station fetcher.Station
		if err := json.Unmarshal(raw, &station); err == nil {
			out[id] = station
		}
	})
	return out
}

// LastCheck returns when the last successful refresh completed.
func (s *Store) LastCheck(ctx context.Context) (time.Time, bool) {
	var millis int64
	if !s.read(ctx, keyLastCheck, &millis) || millis <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// Settings returns persisted preferences, falling back to defaults.
func (s *Store) Settings(ctx context.Context) Settings {
	settings := DefaultSettings()
	if !s.read(ctx, keySettings, &settings) {
		return DefaultSettings()
	}
	if !fuel.Valid(settings.BadgeFuelType) {
		settings.BadgeFuelType = fuel.DefaultBadgeFuel
	}
	return settings
}

// SetSettings persists preferences.
func (s *Store) SetSettings(ctx context.Context, settings Settings) error {
	return s.write(ctx, keySettings, settings)
}

// Swap atomically replaces the previous/current snapshots, the station
// records, and the last-check timestamp. Either all four change or none do.
func (s *Store) Swap(ctx context.Context, snap Snapshot) error {
	entries := map[string][]byte{}

	var err error
	if entries[keyPrevPrices], err = json.Marshal(encodePrices(snap.Previous)); err != nil {
		return err
	}
	if entries[keyLastPrices], err = json.Marshal(encodePrices(snap.Current)); err != nil {
		return err
	}
	if entries[keyStationData], err = json.Marshal(encodeIDMap(snap.Stations)); err != nil {
		return err
	}
	if entries[keyLastCheck], err = json.Marshal(snap.CheckedAt.UnixMilli()); err != nil {
		return err
	}

	return s.kv.SetAll(ctx, entries)
}

func (s *Store) readPrices(ctx context.Context, key string) map[int64]fuel.PriceMap {
	out := map[int64]fuel.PriceMap{}
	s.readIDMap(ctx, key, func(id int64, raw json.RawMessage) {
		var prices fuel.PriceMap
		if err := json.Unmarshal(raw, &prices); err == nil {
			out[id] = prices
		}
	})
	return out
}

// read unmarshals one key into dst, reporting false for absent or
// unreadable values.
func (s *Store) read(ctx context.Context, key string, dst any) bool {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("state read failed; treating as absent")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt state value; treating as absent")
		return false
	}
	return true
}

// readIDMap decodes a JSON object keyed by station id, skipping entries
// whose key does not parse.
func (s *Store) readIDMap(ctx context.Context, key string, visit func(int64, json.RawMessage)) {
	var raw map[string]json.RawMessage
	if !s.read(ctx, key, &raw) {
		return
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		visit(id, v)
	}
}

func (s *Store) write(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, encoded)
}

func encodeIDMap[V any](in map[int64]V) map[string]V {
	out := make(map[string]V, len(in))
	for id, v := range in {
		out[strconv.FormatInt(id, 10)] = v
	}
	return out
}

func encodePrices(in map[int64]fuel.PriceMap) map[string]fuel.PriceMap {
	return encodeIDMap(in)
}

// flexID decodes an id written either as a JSON number or as a string,
// normalising legacy string-keyed state.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		v, err := num.Int64()
		if err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}
