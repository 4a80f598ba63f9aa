package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/fuel"
)

// Sample is one persisted fuel price observation for a station.
type Sample struct {
	StationID      int64
	Fuel           fuel.Key
	Price          decimal.Decimal
	PriceUpdatedAt *time.Time
	RecordedAt     time.Time
}

// SampleStore defines operations for price history persistence.
type SampleStore interface {
	AppendSamples(ctx context.Context, samples []Sample) error
	ListSamples(ctx context.Context, stationID int64, from, to time.Time) ([]Sample, error)
	CountSamples(ctx context.Context) (int64, error)
}

const (
	insertSampleSQL = `INSERT INTO fuel_price_samples (
        station_id, fuel, price, price_updated_at, recorded_at
    ) VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (station_id, fuel, recorded_at) DO UPDATE
    SET price = EXCLUDED.price,
        price_updated_at = EXCLUDED.price_updated_at;`

	listSamplesSQL = `SELECT station_id, fuel, price, price_updated_at, recorded_at
    FROM fuel_price_samples
    WHERE station_id = $1
      AND recorded_at >= $2
      AND recorded_at < $3
    ORDER BY recorded_at, fuel;`

	countSamplesSQL = `SELECT COUNT(*) FROM fuel_price_samples;`
)

// History persists per-refresh price samples.
type History struct {
	pool *pgxpool.Pool
}

// NewHistory wires a pgx pool into a History store.
func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

func (h *History) getPool() (*pgxpool.Pool, error) {
	if h == nil || h.pool == nil {
		return nil, ErrNotConfigured
	}
	return h.pool, nil
}

// AppendSamples records one refresh's worth of observations in a single
// transaction.
func (h *History) AppendSamples(ctx context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	pool, err := h.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sample append: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sample := range samples {
		var updatedAt interface{}
		if sample.PriceUpdatedAt != nil {
			updatedAt = *sample.PriceUpdatedAt
		}
		_, execErr := tx.Exec(ctx, insertSampleSQL,
			sample.StationID,
			string(sample.Fuel),
			sample.Price.String(),
			updatedAt,
			sample.RecordedAt,
		)
		if execErr != nil {
			return fmt.Errorf("append sample: %w", execErr)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sample append: %w", err)
	}
	return nil
}

// ListSamples lists a station's observations within a time window.
func (h *History) ListSamples(ctx context.Context, stationID int64, from, to time.Time) ([]Sample, error) {
	pool, err := h.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesSQL, stationID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]Sample, 0)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts stored observations.
func (h *History) CountSamples(ctx context.Context) (int64, error) {
	pool, err := h.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

func scanSample(rows pgx.Rows) (Sample, error) {
	var (
		stationID int64
		fuelKey   string
		priceStr  string
		updatedAt *time.Time
		recorded  time.Time
	)

	if err := rows.Scan(&stationID, &fuelKey, &priceStr, &updatedAt, &recorded); err != nil {
		return Sample{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return Sample{}, fmt.Errorf("parse sample price: %w", err)
	}

	return Sample{
		StationID:      stationID,
		Fuel:           fuel.Key(fuelKey),
		Price:          price,
		PriceUpdatedAt: updatedAt,
		RecordedAt:     recorded,
	}, nil
}

var _ SampleStore = (*History)(nil)
