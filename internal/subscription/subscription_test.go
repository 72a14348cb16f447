package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/eventbus"
	"github.com/GridtNetwork/gridtlib/internal/graph"
	"github.com/GridtNetwork/gridtlib/internal/grandom"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// wireGraph registers the graph engine's wiring routines on bus exactly
// as the composition root does (spec §4.4/§4.6), so these tests exercise
// the real after-commit hook path rather than calling the engine
// directly.
func wireGraph(bus *eventbus.Bus, eng *graph.Engine) {
	bus.On(eventbus.OnSubscribe, "addInitialLeaders", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.AddInitialLeaders(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnSubscribe, "addInitialFollowers", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.AddInitialFollowers(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnUnsubscribe, "removeAllLeaders", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.RemoveAllLeaders(ctx, ev.UserID, ev.MovementID)
	})
	bus.On(eventbus.OnUnsubscribe, "removeAllFollowers", func(ctx context.Context, payload any) error {
		ev := payload.(eventbus.SubscriptionEvent)
		return eng.RemoveAllFollowers(ctx, ev.UserID, ev.MovementID)
	})
}

type fixture struct {
	ctrl *Controller
	s    *store.Store
	eng  *graph.Engine
	mID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(store.DriverPureGo, store.InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	bus := eventbus.New(nil)
	eng := graph.NewEngine(s, grandom.Fixed(0), graph.DefaultFanOutCap)
	wireGraph(bus, eng)

	ctx := context.Background()
	var mID int64
	err = s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		mID, err = q.CreateMovement(ctx, "Movement", "daily", nil, nil)
		return err
	})
	if err != nil {
		t.Fatalf("create movement: %v", err)
	}

	return &fixture{ctrl: New(s, bus), s: s, eng: eng, mID: mID}
}

func (f *fixture) createUser(t *testing.T, name string) int64 {
	t.Helper()
	var id int64
	err := f.s.WithTx(context.Background(), func(ctx context.Context, q *store.Queries) error {
		var err error
		id, err = q.CreateUser(ctx, name+"@example.com", name, "hash", false)
		return err
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return id
}

func TestNewSubscriptionFiresFanOutHook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for _, n := range []string{"u0", "u1", "u2", "u3", "u4"} {
		id := f.createUser(t, n)
		ids = append(ids, id)
		if _, err := f.ctrl.NewSubscription(ctx, id, f.mID); err != nil {
			t.Fatalf("subscribe %s: %v", n, err)
		}
	}

	// u4 (last to subscribe) has 4 other subscribers available, so
	// property P6 requires exactly 4 current leaders.
	leaders, err := f.eng.CurrentLeaders(ctx, ids[4], f.mID)
	if err != nil {
		t.Fatalf("CurrentLeaders: %v", err)
	}
	if len(leaders) != 4 {
		t.Errorf("got %d leaders, want 4", len(leaders))
	}

	subscribed, err := f.ctrl.IsSubscribed(ctx, ids[4], f.mID)
	if err != nil || !subscribed {
		t.Errorf("IsSubscribed = %v, %v, want true, nil", subscribed, err)
	}
}

func TestRemoveSubscriptionDestroysAllLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for _, n := range []string{"u0", "u1", "u2"} {
		id := f.createUser(t, n)
		ids = append(ids, id)
		if _, err := f.ctrl.NewSubscription(ctx, id, f.mID); err != nil {
			t.Fatalf("subscribe %s: %v", n, err)
		}
	}

	if err := f.ctrl.RemoveSubscription(ctx, ids[0], f.mID); err != nil {
		t.Fatalf("RemoveSubscription: %v", err)
	}

	subscribed, err := f.ctrl.IsSubscribed(ctx, ids[0], f.mID)
	if err != nil || subscribed {
		t.Errorf("IsSubscribed after removal = %v, %v, want false, nil", subscribed, err)
	}

	// Every active link touching ids[0], as either follower or leader,
	// must be gone (property P5).
	for _, other := range ids[1:] {
		if ok, _ := f.eng.FollowsLeader(ctx, ids[0], f.mID, other); ok {
			t.Errorf("ids[0] should no longer follow %d", other)
		}
		if ok, _ := f.eng.FollowsLeader(ctx, other, f.mID, ids[0]); ok {
			t.Errorf("%d should no longer follow ids[0]", other)
		}
	}
}

func TestRemoveSubscriptionNotSubscribedFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.createUser(t, "u0")

	err := f.ctrl.RemoveSubscription(ctx, id, f.mID)
	if !gridterr.Is(err, gridterr.SubscriptionNotFound) {
		t.Fatalf("got %v, want SubscriptionNotFound", err)
	}
}

func TestGetSubscribersAndSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u0 := f.createUser(t, "u0")
	u1 := f.createUser(t, "u1")
	if _, err := f.ctrl.NewSubscription(ctx, u0, f.mID); err != nil {
		t.Fatalf("subscribe u0: %v", err)
	}
	if _, err := f.ctrl.NewSubscription(ctx, u1, f.mID); err != nil {
		t.Fatalf("subscribe u1: %v", err)
	}

	subs, err := f.ctrl.GetSubscribers(ctx, f.mID)
	if err != nil {
		t.Fatalf("GetSubscribers: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("got %d subscribers, want 2", len(subs))
	}

	movements, err := f.ctrl.GetSubscriptions(ctx, u0)
	if err != nil {
		t.Fatalf("GetSubscriptions: %v", err)
	}
	if len(movements) != 1 || movements[0] != f.mID {
		t.Errorf("got %v, want [%d]", movements, f.mID)
	}
}
