package creation

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/eventbus"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
	"github.com/GridtNetwork/gridtlib/internal/subscription"
)

func newFixture(t *testing.T) (*Controller, *store.Store, int64) {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(store.DriverPureGo, store.InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	bus := eventbus.New(nil)
	subs := subscription.New(s, bus)
	ctrl := New(s, bus, subs)

	var adminID int64
	err = s.WithTx(context.Background(), func(ctx context.Context, q *store.Queries) error {
		var err error
		adminID, err = q.CreateUser(ctx, "admin@example.com", "admin", "hash", true)
		return err
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return ctrl, s, adminID
}

func TestNewMovementByUserRequiresAdmin(t *testing.T) {
	ctrl, s, _ := newFixture(t)
	ctx := context.Background()

	var memberID int64
	err := s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		memberID, err = q.CreateUser(ctx, "member@example.com", "member", "hash", false)
		return err
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	_, err = ctrl.NewMovementByUser(ctx, memberID, "Read", "daily", nil, nil, false)
	if !gridterr.Is(err, gridterr.UserNotAdmin) {
		t.Fatalf("got %v, want UserNotAdmin", err)
	}
}

func TestNewMovementByUserAutoSubscribes(t *testing.T) {
	ctrl, _, adminID := newFixture(t)
	ctx := context.Background()

	m, err := ctrl.NewMovementByUser(ctx, adminID, "Read", "daily", nil, nil, true)
	if err != nil {
		t.Fatalf("NewMovementByUser: %v", err)
	}

	isCreator, err := ctrl.IsCreator(ctx, adminID, m.ID)
	if err != nil || !isCreator {
		t.Errorf("IsCreator = %v, %v, want true, nil", isCreator, err)
	}
}

func TestNewMovementByUserSkipsSubscribeWhenDisabled(t *testing.T) {
	ctrl, s, adminID := newFixture(t)
	ctx := context.Background()

	m, err := ctrl.NewMovementByUser(ctx, adminID, "Read", "daily", nil, nil, false)
	if err != nil {
		t.Fatalf("NewMovementByUser: %v", err)
	}

	err = s.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rel, err := q.GetActiveRelation(ctx, store.RelationSubscription, adminID, m.ID)
		if err != nil {
			return err
		}
		if rel != nil {
			t.Error("expected no subscription when autoSubscribe is false")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("check subscription: %v", err)
	}
}

func TestRemoveCreationRequiresExistingCreation(t *testing.T) {
	ctrl, _, adminID := newFixture(t)
	ctx := context.Background()

	m, err := ctrl.NewMovementByUser(ctx, adminID, "Read", "daily", nil, nil, false)
	if err != nil {
		t.Fatalf("NewMovementByUser: %v", err)
	}

	if err := ctrl.RemoveCreation(ctx, adminID, m.ID); err != nil {
		t.Fatalf("RemoveCreation: %v", err)
	}

	err = ctrl.RemoveCreation(ctx, adminID, m.ID)
	if !gridterr.Is(err, gridterr.UserIsNotCreator) {
		t.Fatalf("got %v, want UserIsNotCreator", err)
	}
}
