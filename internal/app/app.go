package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/alerting"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/config"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/scheduler"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/service"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/state"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/storage"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/tracking"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// deps holds one command invocation's wired dependencies.
type deps struct {
	state    *state.Store
	tracking *tracking.Manager
	service  *service.Service
	history  storage.SampleStore
	feed     fetcher.StationFetcher
	enricher fetcher.NameEnricher
	close    func()
}

// openDeps wires storage, fetchers, and the service. Without a database
// DSN the app runs on an in-memory store: fully functional, nothing
// survives the process.
func (a *App) openDeps(ctx context.Context, sched *scheduler.Scheduler) (*deps, error) {
	var kv storage.KV
	var history storage.SampleStore
	closer := func() {}

	if a.Config.Database.DSN == "" {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
		kv = storage.NewMemoryKV()
	} else {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		pg := storage.NewPostgresKV(pool)
		kv = pg
		history = storage.NewHistory(pool)
		closer = pg.Close
	}

	st := state.New(kv, a.Logger)
	feed := a.newFeed()
	svc := service.New(a.Config, sched, feed, st, history, a.newNotifier(), a.Logger)

	return &deps{
		state:    st,
		tracking: tracking.New(st, a.Logger),
		service:  svc,
		history:  history,
		feed:     feed,
		enricher: a.newEnricher(),
		close:    closer,
	}, nil
}

func (a *App) newFeed() *fetcher.Gouv {
	return fetcher.NewGouv(fetcher.GouvOptions{
		BaseURL:     a.Config.API.BaseURL,
		Timeout:     a.Config.API.RequestTimeout,
		UserAgent:   a.Config.API.UserAgent,
		BatchSize:   a.Config.API.BatchSize,
		SearchLimit: a.Config.API.SearchLimit,
	}, a.Logger)
}

func (a *App) newEnricher() fetcher.NameEnricher {
	if !a.Config.Enrichment.Enabled {
		return nil
	}
	return fetcher.NewEnricher(fetcher.EnrichOptions{
		RelayURL:       a.Config.Enrichment.RelayURL,
		StationPageURL: a.Config.Enrichment.StationPageURL,
		Timeout:        a.Config.Enrichment.RequestTimeout,
		UserAgent:      a.Config.API.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)
}

// Run executes the long-running watcher: periodic refresh plus alerting.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := a.openDeps(ctx, a.newScheduler())
	if err != nil {
		return err
	}
	defer d.close()

	a.Logger.Info().Msg("starting price watcher")
	err = d.service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("price watcher stopped")
	return nil
}

// Refresh performs one refresh cycle and exits.
func (a *App) Refresh(ctx context.Context) error {
	d, err := a.openDeps(ctx, nil)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.service.Refresh(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("refresh failed; last persisted snapshot remains authoritative")
		return err
	}
	return nil
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	StationID int64
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
