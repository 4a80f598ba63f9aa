package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fetcher"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
	"github.com/mathieuguryone-maker/CarbuAlert/internal/state"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/view", func(c *fiber.Ctx) error {
		return c.JSON(deps.Service.BuildView(c.UserContext()))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if err := deps.Service.Refresh(c.UserContext()); err != nil {
			// The view stays valid on failure; the client keeps rendering
			// the last persisted state.
			if errors.Is(err, fetcher.ErrRemote) {
				return fiber.NewError(fiber.StatusBadGateway, "price feed unavailable")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "refresh failed")
		}
		return c.JSON(deps.Service.BuildView(c.UserContext()))
	})

	v1.Get("/stations/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		mode := fetcher.SearchMode(c.Query("mode", string(fetcher.SearchByCity)))
		if mode != fetcher.SearchByCity && mode != fetcher.SearchByPostalCode {
			return fiber.NewError(fiber.StatusBadRequest, "mode must be city or cp")
		}

		stations, err := deps.Stations.Search(c.UserContext(), query, mode)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "price feed unavailable")
		}
		return c.JSON(fiber.Map{"results": searchResults(stations)})
	})

	v1.Post("/stations", func(c *fiber.Ctx) error {
		id, err := bindStationID(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		station, found, err := deps.Stations.FetchByID(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "price feed unavailable")
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "station not found")
		}

		added, err := deps.Tracking.Add(c.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to track station")
		}

		if added && deps.Enricher != nil {
			if name, ok := deps.Enricher.FetchDisplayName(c.UserContext(), id); ok {
				if err := deps.Tracking.Rename(c.UserContext(), id, name); err != nil {
					deps.Logger.Warn().Err(err).Int64("station_id", id).Msg("failed to save enriched name")
				}
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":      id,
			"added":   added,
			"address": station.Address,
			"city":    station.City,
		})
	})

	v1.Delete("/stations/:id", func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := deps.Tracking.Remove(c.UserContext(), id); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to remove station")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/stations/:id/name", func(c *fiber.Ctx) error {
		id, err := parseIDParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
		if err := deps.Tracking.Rename(c.UserContext(), id, body.Name); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to rename station")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/reference", func(c *fiber.Ctx) error {
		id, err := bindStationID(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := deps.Tracking.SetReference(c.UserContext(), id); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to set reference")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/reference", func(c *fiber.Ctx) error {
		if err := deps.Tracking.ClearReference(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear reference")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(deps.State.Settings(c.UserContext()))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var settings state.Settings
		if err := c.BodyParser(&settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
		if !fuel.Valid(settings.BadgeFuelType) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown badge fuel type")
		}
		if err := deps.State.SetSettings(c.UserContext(), settings); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(settings)
	})
}

// searchResult mirrors what the original settings page showed per hit.
type searchResult struct {
	ID         int64         `json:"id"`
	Address    string        `json:"address"`
	PostalCode string        `json:"postalCode"`
	City       string        `json:"city"`
	Prices     fuel.PriceMap `json:"prices"`
}

func searchResults(stations []fetcher.Station) []searchResult {
	out := make([]searchResult, 0, len(stations))
	for _, station := range stations {
		out = append(out, searchResult{
			ID:         station.ID,
			Address:    station.Address,
			PostalCode: station.PostalCode,
			City:       station.City,
			Prices:     station.Prices,
		})
	}
	return out
}

// bindStationID reads {"id": …} from the body, accepting numeric and
// string forms.
func bindStationID(c *fiber.Ctx) (int64, error) {
	var body struct {
		ID json.Number `json:"id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return 0, errors.New("invalid body")
	}
	return parseStationID(body.ID.String())
}

func parseIDParam(c *fiber.Ctx) (int64, error) {
	return parseStationID(c.Params("id"))
}

func parseStationID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, errors.New("station id is required")
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, errors.New("station id must be numeric")
	}
	return id, nil
}
