package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFeedURL = "https://data.economie.gouv.fr/api/explore/v2.1/catalog/datasets/prix-des-carburants-en-france-flux-instantane-v2/records"

	// The feed rejects overlong where clauses, so id lookups go out in
	// fixed-size batches.
	defaultBatchSize   = 20
	defaultSearchLimit = 30
)

// ErrRemote marks any failure talking to the price feed: network errors,
// non-2xx statuses, and open-circuit rejections all wrap it.
var ErrRemote = errors.New("fuel feed request failed")

// GouvOptions parameterise the feed client.
type GouvOptions struct {
	BaseURL     string
	Timeout     time.Duration
	UserAgent   string
	BatchSize   int
	SearchLimit int
}

// Gouv queries the data.economie.gouv.fr instantaneous fuel price feed.
type Gouv struct {
	opts    GouvOptions
	logger  zerolog.Logger
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
}

// NewGouv constructs a feed client.
func NewGouv(opts GouvOptions, logger zerolog.Logger) *Gouv {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultFeedURL
	}

	return &Gouv{
		opts:   opts,
		logger: logger.With().Str("component", "gouv_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "gouv-feed",
		}),
		baseURL: baseURL,
	}
}

// FetchByIDs looks up the given stations in batches issued concurrently.
// A single failing batch fails the whole call; there is no partial result.
// Cross-batch record order is unspecified.
func (g *Gouv) FetchByIDs(ctx context.Context, ids []int64) ([]Station, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	batches := splitBatches(ids, g.opts.BatchSize)
	results := make([][]Station, len(batches))

	group, ctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		group.Go(func() error {
			where := "id in (" + joinIDs(batch) + ")"
			stations, err := g.fetchRecords(ctx, where, len(batch))
			if err != nil {
				return err
			}
			results[i] = stations
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var stations []Station
	for _, batch := range results {
		stations = append(stations, batch...)
	}
	return stations, nil
}

// Search finds stations by city name or exact postal code. A blank query
// returns nothing without touching the network.
func (g *Gouv) Search(ctx context.Context, query string, mode SearchMode) ([]Station, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var where string
	if mode == SearchByPostalCode {
		where = fmt.Sprintf("cp=%q", query)
	} else {
		where = fmt.Sprintf("search(ville,%q)", query)
	}

	return g.fetchRecords(ctx, where, g.opts.SearchLimit)
}

// FetchByID looks up a single station, reporting absence when the feed
// knows no such id.
func (g *Gouv) FetchByID(ctx context.Context, id int64) (Station, bool, error) {
	stations, err := g.fetchRecords(ctx, fmt.Sprintf("id=%d", id), 1)
	if err != nil {
		return Station{}, false, err
	}
	if len(stations) == 0 {
		return Station{}, false, nil
	}
	return stations[0], true, nil
}

type recordsResponse struct {
	Results []Station `json:"results"`
}

func (g *Gouv) fetchRecords(ctx context.Context, where string, limit int) ([]Station, error) {
	endpoint := g.baseURL + "?" + url.Values{
		"where": {where},
		"limit": {strconv.Itoa(limit)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(g.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "carbualert/1.0")
	}

	payload, err := g.breaker.Execute(func() (interface{}, error) {
		resp, doErr := g.client.Do(req)
		if doErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemote, doErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemote, readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, remoteStatusError(resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", ErrRemote, err)
		}
		return nil, err
	}

	var parsed recordsResponse
	if err := json.Unmarshal(payload.([]byte), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRemote, err)
	}
	return parsed.Results, nil
}

func remoteStatusError(status int, body []byte) error {
	var apiErr struct {
		Message   string `json:"message"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ErrRemote, status, apiErr.Message)
	}
	return fmt.Errorf("%w: status %d", ErrRemote, status)
}

func splitBatches(ids []int64, size int) [][]int64 {
	var batches [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

var _ StationFetcher = (*Gouv)(nil)
