package graph

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/store"
)

// AddInitialLeaders wires followerID up to DefaultFanOutCap leaders when
// they first subscribe to movementID (spec §4.6 AddInitialLeaders,
// triggered by onSubscribe). It repeatedly picks a random candidate from
// possibleLeaders until the follower has fanOutCap leaders or no
// candidates remain.
func (e *Engine) AddInitialLeaders(ctx context.Context, followerID, movementID int64) error {
	unlock := e.lockMovement(movementID)
	defer unlock()

	return e.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		for {
			current, err := q.ActiveLeaders(ctx, followerID, movementID)
			if err != nil {
				return err
			}
			if len(current) >= e.fanOutCap {
				return nil
			}
			cands, err := q.PossibleLeaders(ctx, followerID, movementID)
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				return nil
			}
			pick := cands[e.random.IntN(len(cands))]
			if _, err := q.CreateLink(ctx, followerID, pick, movementID); err != nil {
				return err
			}
		}
	})
}

// AddInitialFollowers wires up to fanOutCap followers to leaderID when
// they first subscribe to movementID (spec §4.6 AddInitialFollowers,
// triggered by onSubscribe). Unlike AddInitialLeaders, a new leader has
// no existing followers to account for, so this is a single pass over a
// snapshot of possibleFollowers.
func (e *Engine) AddInitialFollowers(ctx context.Context, leaderID, movementID int64) error {
	unlock := e.lockMovement(movementID)
	defer unlock()

	return e.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		cands, err := q.PossibleFollowers(ctx, leaderID, movementID, e.fanOutCap)
		if err != nil {
			return err
		}
		for _, follower := range cands {
			if _, err := q.CreateLink(ctx, follower, leaderID, movementID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveAllLeaders destroys followerID's active leader edges and, for
// each departing leader, tries to find that leader a replacement
// follower (spec §4.6 RemoveAllLeaders, triggered by onUnsubscribe).
// Callers must end followerID's subscription before invoking this, so
// that possibleFollowers naturally excludes the departing user.
func (e *Engine) RemoveAllLeaders(ctx context.Context, followerID, movementID int64) error {
	unlock := e.lockMovement(movementID)
	defer unlock()

	return e.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		links, err := q.ActiveLeaders(ctx, followerID, movementID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if err := q.DestroyLink(ctx, l.ID); err != nil {
				return err
			}
		}
		for _, l := range links {
			cands, err := q.PossibleFollowers(ctx, l.LeaderID, movementID, e.fanOutCap)
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				continue
			}
			pick := cands[e.random.IntN(len(cands))]
			if _, err := q.CreateLink(ctx, pick, l.LeaderID, movementID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveAllFollowers destroys leaderID's active follower edges and, for
// each orphaned follower, tries to find them a replacement leader (spec
// §4.6 RemoveAllFollowers, triggered by onUnsubscribe). Callers must end
// leaderID's subscription before invoking this, so that possibleLeaders
// naturally excludes the departing user.
func (e *Engine) RemoveAllFollowers(ctx context.Context, leaderID, movementID int64) error {
	unlock := e.lockMovement(movementID)
	defer unlock()

	return e.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		links, err := q.ActiveFollowers(ctx, leaderID, movementID)
		if err != nil {
			return err
		}
		for _, l := range links {
			if err := q.DestroyLink(ctx, l.ID); err != nil {
				return err
			}
		}
		for _, l := range links {
			cands, err := q.PossibleLeaders(ctx, l.FollowerID, movementID)
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				continue
			}
			pick := cands[e.random.IntN(len(cands))]
			if _, err := q.CreateLink(ctx, l.FollowerID, pick, movementID); err != nil {
				return err
			}
		}
		return nil
	})
}
