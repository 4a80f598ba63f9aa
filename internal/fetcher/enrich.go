package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRelayURL       = "https://corsproxy.io/?url="
	defaultStationPageURL = "https://www.prix-carburants.gouv.fr/station/"
)

// The public station page carries the brand name in its heading.
var displayNamePattern = regexp.MustCompile(`(?i)<p\s+class="fr-h2[^"]*">([^<]+)</p>`)

// EnrichOptions parameterise the display-name scraper.
type EnrichOptions struct {
	RelayURL       string
	StationPageURL string
	Timeout        time.Duration
	UserAgent      string
}

// Enricher scrapes a station's public display name through a URL relay
// proxy. This is best-effort decoration, not authoritative data, so every
// failure mode collapses to "no name".
type Enricher struct {
	opts   EnrichOptions
	logger zerolog.Logger
	client *http.Client
}

// NewEnricher constructs a display-name scraper.
func NewEnricher(opts EnrichOptions, logger zerolog.Logger) *Enricher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.RelayURL == "" {
		opts.RelayURL = defaultRelayURL
	}
	if opts.StationPageURL == "" {
		opts.StationPageURL = defaultStationPageURL
	}

	return &Enricher{
		opts:   opts,
		logger: logger.With().Str("component", "name_enricher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchDisplayName returns the station's public name, or absence on any
// failure (network, status, pattern miss).
func (e *Enricher) FetchDisplayName(ctx context.Context, id int64) (string, bool) {
	target := e.opts.StationPageURL + strconv.FormatInt(id, 10)
	endpoint := e.opts.RelayURL + url.QueryEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false
	}
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug().Err(err).Int64("station_id", id).Msg("name lookup failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Debug().Int("status", resp.StatusCode).Int64("station_id", id).Msg("name lookup rejected")
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}

	match := displayNamePattern.FindSubmatch(body)
	if match == nil {
		return "", false
	}
	name := strings.TrimSpace(string(match[1]))
	if name == "" {
		return "", false
	}
	return name, true
}

var _ NameEnricher = (*Enricher)(nil)
