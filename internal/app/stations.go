package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

// AddStation verifies the station exists in the feed, then starts tracking
// it. Name enrichment is best effort.
func (a *App) AddStation(ctx context.Context, id int64, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	station, found, err := d.feed.FetchByID(ctx, id)
	if err != nil {
		return fmt.Errorf("look up station %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("station %d not found in the price feed", id)
	}

	added, err := d.tracking.Add(ctx, id)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(out, "Station %d is already tracked.\n", id)
		return nil
	}

	if d.enricher != nil {
		if name, ok := d.enricher.FetchDisplayName(ctx, id); ok {
			if err := d.tracking.Rename(ctx, id, name); err != nil {
				a.Logger.Warn().Err(err).Int64("station_id", id).Msg("failed to save enriched name")
			}
		}
	}

	fmt.Fprintf(out, "Now tracking station %d (%s, %s %s).\n", id, station.Address, station.PostalCode, station.City)
	return nil
}

// RemoveStation stops tracking the station.
func (a *App) RemoveStation(ctx context.Context, id int64, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.tracking.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Station %d removed.\n", id)
	return nil
}

// RenameStation sets a custom display name; an empty name clears the
// override.
func (a *App) RenameStation(ctx context.Context, id int64, name string, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.tracking.Rename(ctx, id, name); err != nil {
		return err
	}
	if name == "" {
		fmt.Fprintf(out, "Custom name for station %d cleared.\n", id)
	} else {
		fmt.Fprintf(out, "Station %d renamed to %q.\n", id, name)
	}
	return nil
}

// SetReference marks the station every other station is compared against.
func (a *App) SetReference(ctx context.Context, id int64, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.tracking.SetReference(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Station %d is now the reference.\n", id)
	return nil
}

// ClearReference removes the reference marker.
func (a *App) ClearReference(ctx context.Context, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.tracking.ClearReference(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Reference cleared.")
	return nil
}

// ListStations prints the tracked stations from persisted state.
func (a *App) ListStations(ctx context.Context, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	ids := d.state.StationIDs(ctx)
	if len(ids) == 0 {
		fmt.Fprintln(out, "No tracked stations.")
		return nil
	}

	names := d.state.StationNames(ctx)
	records := d.state.StationRecords(ctx)
	refID, hasRef := d.state.ReferenceID(ctx)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tCITY\tREF")
	for _, id := range ids {
		var address, city string
		if station, ok := records[id]; ok {
			address = station.Address
			city = fmt.Sprintf("%s %s", station.PostalCode, station.City)
		}
		ref := ""
		if hasRef && id == refID {
			ref = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			id, sanitizeInline(names[id]), sanitizeInline(address), sanitizeInline(city), ref)
	}
	return w.Flush()
}

// SearchStations queries the feed by city name or postal code and prints
// the hits with their current prices.
func (a *App) SearchStations(ctx context.Context, query string, mode fetcher.SearchMode, out io.Writer) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	stations, err := d.feed.Search(ctx, query, mode)
	if err != nil {
		return err
	}
	if len(stations) == 0 {
		fmt.Fprintln(out, "No stations found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADDRESS\tCITY\tPRICES")
	for _, station := range stations {
		fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\n",
			station.ID,
			sanitizeInline(station.Address),
			station.PostalCode,
			sanitizeInline(station.City),
			summarizePrices(station.Prices),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nTrack one with `carbualert station add <id>`.")
	return nil
}

func summarizePrices(prices fuel.PriceMap) string {
	var parts []string
	for _, key := range fuel.Keys() {
		if quote, ok := prices[key]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", key.Label(), fuel.Round(quote.Price).StringFixed(3)))
		}
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, ", ")
}
