// Package tracking manages the user's tracked station list.
package tracking

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mathieuguryone-maker/CarbuAlert/internal/state"
)

// Manager performs CRUD over the persisted tracked-station state. All
// operations are idempotent.
type Manager struct {
	state  *state.Store
	logger zerolog.Logger
}

// New constructs a tracking manager.
func New(st *state.Store, logger zerolog.Logger) *Manager {
	return &Manager{state: st, logger: logger.With().Str("component", "tracking").Logger()}
}

// Add appends id to the tracked list. Adding an already-tracked station is
// a no-op; the bool reports whether the list changed.
func (m *Manager) Add(ctx context.Context, id int64) (bool, error) {
	ids := m.state.StationIDs(ctx)
	for _, existing := range ids {
		if existing == id {
			return false, nil
		}
	}
	if err := m.state.SetStationIDs(ctx, append(ids, id)); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops id from the tracked list and deletes its name override.
// The reference id is deliberately left alone: a reference pointing at an
// untracked station reads as "no reference" in the view.
func (m *Manager) Remove(ctx context.Context, id int64) error {
	ids := m.state.StationIDs(ctx)
	kept := make([]int64, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if err := m.state.SetStationIDs(ctx, kept); err != nil {
		return err
	}

	names := m.state.StationNames(ctx)
	if _, ok := names[id]; ok {
		delete(names, id)
		if err := m.state.SetStationNames(ctx, names); err != nil {
			return err
		}
	}
	return nil
}

// Rename sets the display name override for id. A blank name (after
// trimming) clears the override instead.
func (m *Manager) Rename(ctx context.Context, id int64, name string) error {
	names := m.state.StationNames(ctx)
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		delete(names, id)
	} else {
		names[id] = trimmed
	}
	return m.state.SetStationNames(ctx, names)
}

// SetReference marks id as the comparison baseline. Membership in the
// tracked list is not enforced here; the view degrades gracefully.
func (m *Manager) SetReference(ctx context.Context, id int64) error {
	return m.state.SetReferenceID(ctx, id)
}

// ClearReference removes the comparison baseline.
func (m *Manager) ClearReference(ctx context.Context) error {
	return m.state.ClearReferenceID(ctx)
}
