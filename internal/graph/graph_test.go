package graph

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/grandom"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

type fixture struct {
	s   *store.Store
	eng *Engine
	mID int64
	ids map[string]int64
}

// newFixture builds a movement with the named users already subscribed,
// using grandom.Fixed(0) so every "random" pick is deterministic: it
// always takes the first candidate in the (query-ordered, hence
// ascending-by-id) candidate slice.
func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(store.DriverPureGo, store.InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	eng := NewEngine(s, grandom.Fixed(0), DefaultFanOutCap)

	ctx := context.Background()
	ids := make(map[string]int64)
	err = s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		mID, err := q.CreateMovement(ctx, "Movement", "daily", nil, nil)
		if err != nil {
			return err
		}
		for _, n := range names {
			uid, err := q.CreateUser(ctx, n+"@example.com", n, "hash", false)
			if err != nil {
				return err
			}
			if _, err := q.CreateRelation(ctx, store.RelationSubscription, uid, mID); err != nil {
				return err
			}
			ids[n] = uid
		}
		ids["__movement__"] = mID
		return nil
	})
	if err != nil {
		t.Fatalf("fixture setup: %v", err)
	}
	return &fixture{s: s, eng: eng, mID: ids["__movement__"], ids: ids}
}

func TestAddInitialLeadersCapsAtFanOut(t *testing.T) {
	// u0 subscribes last among six users; AddInitialLeaders should wire
	// exactly DefaultFanOutCap leaders, never more (invariant I5).
	f := newFixture(t, "u0", "u1", "u2", "u3", "u4", "u5")
	ctx := context.Background()

	if err := f.eng.AddInitialLeaders(ctx, f.ids["u0"], f.mID); err != nil {
		t.Fatalf("AddInitialLeaders: %v", err)
	}

	leaders, err := f.eng.CurrentLeaders(ctx, f.ids["u0"], f.mID)
	if err != nil {
		t.Fatalf("CurrentLeaders: %v", err)
	}
	if len(leaders) != DefaultFanOutCap {
		t.Errorf("got %d leaders, want %d", len(leaders), DefaultFanOutCap)
	}
}

func TestAddInitialLeadersFewerCandidatesThanCap(t *testing.T) {
	// Only two other subscribers exist, so u0 ends up with two leaders,
	// not an error and not a partially-wired state.
	f := newFixture(t, "u0", "u1", "u2")
	ctx := context.Background()

	if err := f.eng.AddInitialLeaders(ctx, f.ids["u0"], f.mID); err != nil {
		t.Fatalf("AddInitialLeaders: %v", err)
	}
	leaders, err := f.eng.CurrentLeaders(ctx, f.ids["u0"], f.mID)
	if err != nil {
		t.Fatalf("CurrentLeaders: %v", err)
	}
	if len(leaders) != 2 {
		t.Errorf("got %d leaders, want 2", len(leaders))
	}
}

func TestSwapLeaderSolitaryPairReturnsNilNotError(t *testing.T) {
	// Two mutually-subscribed users, u0 follows u1: no third candidate
	// exists, so SwapLeader must report "no replacement" via a nil
	// result, not an error (spec §4.6 SwapLeader / B1).
	f := newFixture(t, "u0", "u1")
	ctx := context.Background()

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.CreateLink(ctx, f.ids["u0"], f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("wire initial link: %v", err)
	}

	result, err := f.eng.SwapLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err != nil {
		t.Fatalf("SwapLeader: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}

	// The original link must be untouched.
	ok, err := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err != nil {
		t.Fatalf("FollowsLeader: %v", err)
	}
	if !ok {
		t.Error("expected original link to remain after a no-op swap")
	}
}

func TestSwapLeaderReplacesWithCandidate(t *testing.T) {
	// Three subscribers, u0 -> u1 wired. Swapping should drop u0->u1 and
	// add u0->u2 (the only candidate), matching spec scenario S6.
	f := newFixture(t, "u0", "u1", "u2")
	ctx := context.Background()

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.CreateLink(ctx, f.ids["u0"], f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("wire initial link: %v", err)
	}

	result, err := f.eng.SwapLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err != nil {
		t.Fatalf("SwapLeader: %v", err)
	}
	if result == nil || result.Leader.ID != f.ids["u2"] {
		t.Fatalf("got %+v, want leader u2", result)
	}

	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"]); ok {
		t.Error("old link u0->u1 should be destroyed")
	}
	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u2"]); !ok {
		t.Error("new link u0->u2 should be active")
	}
}

func TestSwapLeaderNotFollowingFails(t *testing.T) {
	f := newFixture(t, "u0", "u1", "u2")
	ctx := context.Background()

	_, err := f.eng.SwapLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err == nil {
		t.Fatal("expected NotFollowing error when no link exists")
	}
}

func TestRemoveAllLeadersReassignsOrphanedLeader(t *testing.T) {
	// u0 -> u1 is u1's only follower. When u0 unsubscribes,
	// RemoveAllLeaders should destroy u0->u1 and try to find u1 a new
	// follower from the remaining subscribers.
	f := newFixture(t, "u0", "u1", "u2")
	ctx := context.Background()

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.CreateLink(ctx, f.ids["u0"], f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("wire initial link: %v", err)
	}

	// Simulate the subscription controller having already ended u0's
	// subscription before firing the hook.
	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.EndActiveRelation(ctx, store.RelationSubscription, f.ids["u0"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("end subscription: %v", err)
	}

	if err := f.eng.RemoveAllLeaders(ctx, f.ids["u0"], f.mID); err != nil {
		t.Fatalf("RemoveAllLeaders: %v", err)
	}

	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"]); ok {
		t.Error("u0->u1 should be destroyed")
	}
	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u2"], f.mID, f.ids["u1"]); !ok {
		t.Error("u1 should have been reassigned u2 as a replacement follower")
	}
}

func TestRemoveAllFollowersReassignsOrphanedFollower(t *testing.T) {
	// u0 -> u1: u0's only leader is u1. When u1 unsubscribes,
	// RemoveAllFollowers should destroy u0->u1 and try to find u0 a new
	// leader.
	f := newFixture(t, "u0", "u1", "u2")
	ctx := context.Background()

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.CreateLink(ctx, f.ids["u0"], f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("wire initial link: %v", err)
	}

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.EndActiveRelation(ctx, store.RelationSubscription, f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("end subscription: %v", err)
	}

	if err := f.eng.RemoveAllFollowers(ctx, f.ids["u1"], f.mID); err != nil {
		t.Fatalf("RemoveAllFollowers: %v", err)
	}

	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"]); ok {
		t.Error("u0->u1 should be destroyed")
	}
	if ok, _ := f.eng.FollowsLeader(ctx, f.ids["u0"], f.mID, f.ids["u2"]); !ok {
		t.Error("u0 should have been reassigned u2 as a replacement leader")
	}
}

func TestGetLeaderIncludesMessageHistory(t *testing.T) {
	f := newFixture(t, "u0", "u1")
	ctx := context.Background()

	if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		_, err := q.CreateLink(ctx, f.ids["u0"], f.ids["u1"], f.mID)
		return err
	}); err != nil {
		t.Fatalf("wire link: %v", err)
	}
	for i := 0; i < 4; i++ {
		msg := "signal"
		if err := f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
			_, err := q.CreateSignal(ctx, f.ids["u1"], f.mID, &msg)
			return err
		}); err != nil {
			t.Fatalf("create signal: %v", err)
		}
	}

	detail, err := f.eng.GetLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err != nil {
		t.Fatalf("GetLeader: %v", err)
	}
	if len(detail.MessageHistory) != 3 {
		t.Errorf("got %d signals, want 3 (capped)", len(detail.MessageHistory))
	}
}

func TestGetLeaderNotFollowingFails(t *testing.T) {
	f := newFixture(t, "u0", "u1")
	ctx := context.Background()

	_, err := f.eng.GetLeader(ctx, f.ids["u0"], f.mID, f.ids["u1"])
	if err == nil {
		t.Fatal("expected NotFollowing error")
	}
}
