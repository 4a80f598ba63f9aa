// Package service orchestrates the refresh cycle: fetch tracked stations,
// swap the persisted snapshots, then record history and evaluate alerts.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/alerting"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/config"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/scheduler"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/state"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/storage"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/view"
)

// Service ties the feed client, the persisted state, the history store,
// and the notifier together.
type Service struct {
	scheduler *scheduler.Scheduler
	stations  fetcher.StationFetcher
	state     *state.Store
	history   storage.SampleStore
	notifier  alerting.Notifier
	logger    zerolog.Logger

	threshold decimal.Decimal
	alertsOn  bool

	now func() time.Time
}

// New constructs the refresh service. history and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, stations fetcher.StationFetcher, st *state.Store, history storage.SampleStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdEUR > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdEUR)
	}

	return &Service{
		scheduler: sched,
		stations:  stations,
		state:     st,
		history:   history,
		notifier:  notifier,
		logger:    logger.With().Str("component", "service").Logger(),
		threshold: threshold,
		alertsOn:  cfg.Alerting.Enabled,
		now:       time.Now,
	}
}

// Run begins the periodic refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, _ time.Time) error {
		return s.Refresh(ctx)
	})
}

// Refresh fetches current data for every tracked station and replaces the
// persisted projections in one swap: previous ← current, current ← fresh,
// records ← fresh, last-check ← now. Any fetch failure aborts before a
// single write, so the previous/current pair always reflects two
// consecutive successful refreshes.
func (s *Service) Refresh(ctx context.Context) error {
	ids := s.state.StationIDs(ctx)
	if len(ids) == 0 {
		s.logger.Debug().Msg("no tracked stations; refresh skipped")
		return nil
	}

	stations, err := s.stations.FetchByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch tracked stations: %w", err)
	}

	current := make(map[int64]fuel.PriceMap, len(stations))
	records := make(map[int64]fetcher.Station, len(stations))
	for _, station := range stations {
		records[station.ID] = station
		prices := make(fuel.PriceMap, len(station.Prices))
		for key, quote := range station.Prices {
			prices[key] = quote
		}
		current[station.ID] = prices
	}

	previous := s.state.LastPrices(ctx)
	checkedAt := s.now()

	snap := state.Snapshot{
		Previous:  previous,
		Current:   current,
		Stations:  records,
		CheckedAt: checkedAt,
	}
	if err := s.state.Swap(ctx, snap); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.logger.Info().
		Int("stations", len(stations)).
		Time("checked_at", checkedAt).
		Msg("snapshot refreshed")

	s.appendHistory(ctx, current, checkedAt)
	s.evaluateAlerts(ctx, previous, current, checkedAt)

	return nil
}

// BuildView assembles the display model from persisted state only; it
// never touches the network.
func (s *Service) BuildView(ctx context.Context) view.View {
	in := view.Input{
		TrackedIDs: s.state.StationIDs(ctx),
		Current:    s.state.LastPrices(ctx),
		Previous:   s.state.PreviousPrices(ctx),
		Stations:   s.state.StationRecords(ctx),
		Names:      s.state.StationNames(ctx),
	}
	if refID, ok := s.state.ReferenceID(ctx); ok {
		in.ReferenceID = refID
		in.HasReference = true
	}
	if lastCheck, ok := s.state.LastCheck(ctx); ok {
		in.LastCheck = lastCheck
		in.HasLastCheck = true
	}
	return view.Build(in)
}

// appendHistory records the refreshed prices. Best effort: a failed append
// never fails the refresh.
func (s *Service) appendHistory(ctx context.Context, current map[int64]fuel.PriceMap, checkedAt time.Time) {
	if s.history == nil {
		return
	}

	var samples []storage.Sample
	for id, prices := range current {
		for key, quote := range prices {
			sample := storage.Sample{
				StationID:  id,
				Fuel:       key,
				Price:      quote.Price,
				RecordedAt: checkedAt,
			}
			if t, ok := fuel.ParseFeedTime(quote.UpdatedAt); ok {
				sample.PriceUpdatedAt = &t
			}
			samples = append(samples, sample)
		}
	}

	if err := s.history.AppendSamples(ctx, samples); err != nil {
		s.logger.Error().Err(err).Msg("failed to append price history")
	}
}

// evaluateAlerts compares the two snapshots and notifies about any fuel
// whose price moved by at least the configured threshold.
func (s *Service) evaluateAlerts(ctx context.Context, previous, current map[int64]fuel.PriceMap, checkedAt time.Time) {
	if !s.alertsOn || s.notifier == nil || s.threshold.IsZero() {
		return
	}

	names := s.state.StationNames(ctx)
	records := s.state.StationRecords(ctx)

	var moves []alerting.PriceMove
	for id, prices := range current {
		old, ok := previous[id]
		if !ok {
			continue
		}
		for key, quote := range prices {
			oldQuote, ok := old[key]
			if !ok {
				continue
			}
			oldPrice := fuel.Round(oldQuote.Price)
			newPrice := fuel.Round(quote.Price)
			if newPrice.Sub(oldPrice).Abs().LessThan(s.threshold) {
				continue
			}
			moves = append(moves, alerting.PriceMove{
				StationID:   id,
				StationName: displayName(id, names, records),
				Fuel:        key,
				Old:         oldPrice,
				New:         newPrice,
				Direction:   fuel.Classify(&oldQuote.Price, &quote.Price),
			})
		}
	}

	if len(moves) == 0 {
		return
	}

	note := alerting.Notification{
		CheckedAt: checkedAt,
		Threshold: s.threshold,
		Moves:     moves,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Int("moves", len(moves)).Msg("failed to dispatch alert")
	}
}

func displayName(id int64, names map[int64]string, records map[int64]fetcher.Station) string {
	if name, ok := names[id]; ok {
		return name
	}
	if station, ok := records[id]; ok && station.Address != "" {
		return station.Address
	}
	return fmt.Sprintf("Station %d", id)
}
