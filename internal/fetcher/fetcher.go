package fetcher

import (
	"context"
)

// SearchMode selects how a free-text station search is interpreted.
type SearchMode string

const (
	// SearchByCity matches the query against city names (full-text).
	SearchByCity SearchMode = "city"
	// SearchByPostalCode matches the query exactly against postal codes.
	SearchByPostalCode SearchMode = "cp"
)

// StationFetcher retrieves station records from the government price feed.
type StationFetcher interface {
	FetchByIDs(ctx context.Context, ids []int64) ([]Station, error)
	Search(ctx context.Context, query string, mode SearchMode) ([]Station, error)
	FetchByID(ctx context.Context, id int64) (Station, bool, error)
}

// NameEnricher looks up a station's public display name. Best effort only:
// implementations never return an error, just absence.
type NameEnricher interface {
	FetchDisplayName(ctx context.Context, id int64) (string, bool)
}
