// Package httpapi exposes the tracker over HTTP: the comparison view, the
// station search, and the tracking CRUD the original settings page offered.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/config"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/service"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/state"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/tracking"
)

// Deps bundles what the HTTP handlers need.
type Deps struct {
	Service  *service.Service
	Tracking *tracking.Manager
	Stations fetcher.StationFetcher
	Enricher fetcher.NameEnricher
	State    *state.Store
	Logger   zerolog.Logger
}

// NewServer builds the Fiber app with middleware and routes wired in.
func NewServer(cfg config.ServerConfig, appName string, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestLogger(deps.Logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	RegisterRoutes(app, deps)
	return app
}

// requestLogger emits one zerolog line per request instead of fiber's own
// text logger, keeping log output uniform with the rest of the app.
func requestLogger(logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "httpapi").Logger()
	return func(c *fiber.Ctx) error {
		err := c.Next()
		log.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Msg("request handled")
		return err
	}
}
