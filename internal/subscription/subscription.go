// Package subscription implements the Subscription controller (spec
// §4.4): a user joining or leaving a movement, firing onSubscribe /
// onUnsubscribe for the graph engine to react to after the primary
// write commits.
package subscription

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/eventbus"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// Controller manages subscriptions.
type Controller struct {
	store *store.Store
	bus   *eventbus.Bus
}

// New constructs a subscription controller. bus may be nil in tests
// that don't care about graph side effects; eventbus.Bus is nil-safe on
// Emit.
func New(s *store.Store, bus *eventbus.Bus) *Controller {
	return &Controller{store: s, bus: bus}
}

// IsSubscribed reports whether userID has an active Subscription to
// movementID (spec §4.4 IsSubscribed).
func (c *Controller) IsSubscribed(ctx context.Context, userID, movementID int64) (bool, error) {
	var ok bool
	err := c.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rel, err := q.GetActiveRelation(ctx, store.RelationSubscription, userID, movementID)
		if err != nil {
			return err
		}
		ok = rel != nil
		return nil
	})
	return ok, err
}

// NewSubscription creates an active Subscription for (userID,
// movementID), commits it, and only then fires onSubscribe (spec §4.4
// NewSubscription, §5 "emit after commit"). Registered listeners run
// addInitialLeaders/addInitialFollowers in their own transactions; a
// listener failure is logged by the bus and does not undo the
// subscription.
func (c *Controller) NewSubscription(ctx context.Context, userID, movementID int64) (*store.Relation, error) {
	var result *store.Relation
	err := c.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		movement, err := q.GetMovementByID(ctx, movementID)
		if err != nil {
			return err
		}
		if movement == nil {
			return gridterr.ErrMovementNotFound
		}
		rel, err := q.CreateRelation(ctx, store.RelationSubscription, userID, movementID)
		if err != nil {
			return err
		}
		result = rel
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.bus.Emit(ctx, eventbus.OnSubscribe, eventbus.SubscriptionEvent{UserID: userID, MovementID: movementID})
	return result, nil
}

// RemoveSubscription ends userID's active Subscription to movementID,
// then fires onUnsubscribe (spec §4.4 RemoveSubscription). Fails with
// SubscriptionNotFound if none is active.
func (c *Controller) RemoveSubscription(ctx context.Context, userID, movementID int64) error {
	err := c.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		ended, err := q.EndActiveRelation(ctx, store.RelationSubscription, userID, movementID)
		if err != nil {
			return err
		}
		if !ended {
			return gridterr.ErrSubscriptionNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.bus.Emit(ctx, eventbus.OnUnsubscribe, eventbus.SubscriptionEvent{UserID: userID, MovementID: movementID})
	return nil
}

// GetSubscribers returns every user id actively subscribed to
// movementID (spec §4.4 GetSubscribers).
func (c *Controller) GetSubscribers(ctx context.Context, movementID int64) ([]int64, error) {
	var out []int64
	err := c.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rels, err := q.ListActiveRelationsByMovement(ctx, store.RelationSubscription, movementID)
		if err != nil {
			return err
		}
		for _, r := range rels {
			out = append(out, r.UserID)
		}
		return nil
	})
	return out, err
}

// GetSubscriptions returns every movement id userID is actively
// subscribed to (spec §4.4 GetSubscriptions).
func (c *Controller) GetSubscriptions(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	err := c.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rels, err := q.ListActiveRelationsByUser(ctx, store.RelationSubscription, userID)
		if err != nil {
			return err
		}
		for _, r := range rels {
			out = append(out, r.MovementID)
		}
		return nil
	})
	return out, err
}
