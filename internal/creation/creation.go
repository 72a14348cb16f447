// Package creation implements the Creation controller (spec §4.5): the
// record of which admin founded which movement, and the entry point
// that creates a movement and optionally auto-subscribes its creator.
package creation

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/eventbus"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
	"github.com/GridtNetwork/gridtlib/internal/subscription"
)

// Controller manages movement creation.
type Controller struct {
	store *store.Store
	bus   *eventbus.Bus
	subs  *subscription.Controller
}

// New constructs a creation controller. subs is used to auto-subscribe
// the creator (spec §4.5 step 4); it may share the same store and bus
// the caller constructs subscription.Controller with.
func New(s *store.Store, bus *eventbus.Bus, subs *subscription.Controller) *Controller {
	return &Controller{store: s, bus: bus, subs: subs}
}

// IsCreator reports whether userID has an active Creation row for
// movementID (spec §4.5 IsCreator).
func (c *Controller) IsCreator(ctx context.Context, userID, movementID int64) (bool, error) {
	var ok bool
	err := c.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rel, err := q.GetActiveRelation(ctx, store.RelationCreation, userID, movementID)
		if err != nil {
			return err
		}
		ok = rel != nil
		return nil
	})
	return ok, err
}

// NewMovementByUser creates movementID, founded by userID, who must be
// an admin (spec §4.5 NewMovementByUser). When autoSubscribe is true,
// it also subscribes the creator, which in turn fires the graph hooks
// via subscription.Controller.NewSubscription.
func (c *Controller) NewMovementByUser(ctx context.Context, userID int64, name, interval string, shortDesc, longDesc *string, autoSubscribe bool) (*store.Movement, error) {
	var movement *store.Movement
	err := c.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		user, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return gridterr.ErrUserNotFound
		}
		if !user.IsAdmin {
			return gridterr.ErrUserNotAdmin
		}
		id, err := q.CreateMovement(ctx, name, interval, shortDesc, longDesc)
		if err != nil {
			return err
		}
		if _, err := q.CreateRelation(ctx, store.RelationCreation, userID, id); err != nil {
			return err
		}
		movement = &store.Movement{ID: id, Name: name, Interval: interval, ShortDescription: shortDesc, LongDescription: longDesc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.bus.Emit(ctx, eventbus.OnCreation, eventbus.CreationEvent{UserID: userID, MovementID: movement.ID})

	if autoSubscribe {
		if _, err := c.subs.NewSubscription(ctx, userID, movement.ID); err != nil {
			return nil, err
		}
	}
	return movement, nil
}

// RemoveCreation ends userID's active Creation row for movementID (spec
// §4.5 RemoveCreation). Fails with UserIsNotCreator if none is active.
func (c *Controller) RemoveCreation(ctx context.Context, userID, movementID int64) error {
	err := c.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		ended, err := q.EndActiveRelation(ctx, store.RelationCreation, userID, movementID)
		if err != nil {
			return err
		}
		if !ended {
			return gridterr.ErrUserIsNotCreator
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.bus.Emit(ctx, eventbus.OnRemoveCreation, eventbus.CreationEvent{UserID: userID, MovementID: movementID})
	return nil
}
