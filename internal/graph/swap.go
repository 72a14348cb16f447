package graph

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// SwapLeader replaces followerID's active link to leaderID with a link
// to a randomly-chosen replacement (spec §4.6 SwapLeader). Order of
// checks follows the spec precisely: possibleLeaders is computed first,
// and an empty candidate set short-circuits to (nil, nil) — "no
// replacement available" is not an error — before the existing link is
// even looked up. Only once a candidate exists do we verify followerID
// was actually following leaderID, failing with NotFollowing if not.
func (e *Engine) SwapLeader(ctx context.Context, followerID, movementID, leaderID int64) (*LeaderResult, error) {
	unlock := e.lockMovement(movementID)
	defer unlock()

	var result *LeaderResult
	err := e.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		cands, err := q.PossibleLeaders(ctx, followerID, movementID)
		if err != nil {
			return err
		}
		if len(cands) == 0 {
			result = nil
			return nil
		}

		link, err := q.GetActiveLink(ctx, followerID, leaderID, movementID)
		if err != nil {
			return err
		}
		if link == nil {
			return gridterr.ErrNotFollowing
		}
		if err := q.DestroyLink(ctx, link.ID); err != nil {
			return err
		}

		pick := cands[e.random.IntN(len(cands))]
		if _, err := q.CreateLink(ctx, followerID, pick, movementID); err != nil {
			return err
		}

		newLeader, err := q.GetUserByID(ctx, pick)
		if err != nil {
			return err
		}
		if newLeader == nil {
			return gridterr.ErrUserNotFound
		}
		lastSignal, err := q.LastSignal(ctx, pick, movementID)
		if err != nil {
			return err
		}
		result = &LeaderResult{Leader: userFromStore(newLeader), LastSignal: lastSignal}
		return nil
	})
	return result, err
}
