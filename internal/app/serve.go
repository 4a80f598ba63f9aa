package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/httpapi"
)

// Serve runs the HTTP API together with the periodic refresh loop.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := a.openDeps(ctx, a.newScheduler())
	if err != nil {
		return err
	}
	defer d.close()

	server := httpapi.NewServer(a.Config.Server, a.Config.App.Name, httpapi.Deps{
		Service:  d.service,
		Tracking: d.tracking,
		Stations: d.feed,
		Enricher: d.enricher,
		State:    d.state,
		Logger:   a.Logger,
	})

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := d.service.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		a.Logger.Info().Str("addr", addr).Msg("http api listening")
		return server.Listen(addr)
	})

	group.Go(func() error {
		<-ctx.Done()
		a.Logger.Info().Msg("shutting down http api")
		return server.ShutdownWithTimeout(10 * time.Second)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
