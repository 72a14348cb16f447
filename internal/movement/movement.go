// Package movement implements the Movement registry (spec §4.3): plain
// CRUD-ish access to Movement rows, with composed JSON views delegated
// to internal/jsonview.
package movement

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// Movement is the subset of store.Movement exposed to callers.
type Movement struct {
	ID               int64
	Name             string
	Interval         string
	ShortDescription *string
	LongDescription  *string
}

func fromStore(m *store.Movement) *Movement {
	if m == nil {
		return nil
	}
	return &Movement{ID: m.ID, Name: m.Name, Interval: m.Interval, ShortDescription: m.ShortDescription, LongDescription: m.LongDescription}
}

// Registry manages movements.
type Registry struct {
	store *store.Store
}

// NewRegistry constructs a movement registry over store.
func NewRegistry(s *store.Store) *Registry {
	return &Registry{store: s}
}

// CreateMovement inserts a new movement (spec §4.3 CreateMovement). No
// uniqueness check is performed; callers that care use
// MovementNameExists first.
func (r *Registry) CreateMovement(ctx context.Context, name, interval string, shortDesc, longDesc *string) (*Movement, error) {
	var result *Movement
	err := r.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		id, err := q.CreateMovement(ctx, name, interval, shortDesc, longDesc)
		if err != nil {
			return err
		}
		result = &Movement{ID: id, Name: name, Interval: interval, ShortDescription: shortDesc, LongDescription: longDesc}
		return nil
	})
	return result, err
}

// MovementNameExists reports whether any movement has name (spec §4.3
// MovementNameExists).
func (r *Registry) MovementNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		exists, err = q.MovementNameExists(ctx, name)
		return err
	})
	return exists, err
}

// MovementExists reports whether id refers to an existing movement
// (spec §4.3 MovementExists).
func (r *Registry) MovementExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		exists, err = q.MovementExists(ctx, id)
		return err
	})
	return exists, err
}

// GetMovementByID returns movement id, or MovementNotFound.
func (r *Registry) GetMovementByID(ctx context.Context, id int64) (*Movement, error) {
	var result *Movement
	err := r.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		m, err := q.GetMovementByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return gridterr.ErrMovementNotFound
		}
		result = fromStore(m)
		return nil
	})
	return result, err
}

// GetMovementByName returns the first movement matching name, or
// MovementNotFound.
func (r *Registry) GetMovementByName(ctx context.Context, name string) (*Movement, error) {
	var result *Movement
	err := r.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		m, err := q.GetMovementByName(ctx, name)
		if err != nil {
			return err
		}
		if m == nil {
			return gridterr.ErrMovementNotFound
		}
		result = fromStore(m)
		return nil
	})
	return result, err
}

// GetAllMovements returns every movement (spec §4.3 GetAllMovements,
// prior to JSON-view composition).
func (r *Registry) GetAllMovements(ctx context.Context) ([]*Movement, error) {
	var out []*Movement
	err := r.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rows, err := q.ListMovements(ctx)
		if err != nil {
			return err
		}
		for _, m := range rows {
			out = append(out, fromStore(m))
		}
		return nil
	})
	return out, err
}
