package store

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := Open(DriverPureGo, InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var id int64
	err := s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		var err error
		id, err = q.CreateUser(ctx, "a@example.com", "antonin", "hash", true)
		return err
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	err = s.WithRead(ctx, func(ctx context.Context, q *Queries) error {
		u, err := q.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			t.Fatal("expected user, got nil")
		}
		if u.Email != "a@example.com" || !u.IsAdmin {
			t.Errorf("got %+v, want email a@example.com, is_admin true", u)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read user: %v", err)
	}
}

func TestNestedTransactionRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		return s.WithTx(ctx, func(ctx context.Context, q *Queries) error { return nil })
	})
	if err == nil {
		t.Fatal("expected nested transaction to be rejected")
	}
}

func TestActiveRelationUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var uID, mID int64
	err := s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		var err error
		uID, err = q.CreateUser(ctx, "b@example.com", "bas", "hash", false)
		if err != nil {
			return err
		}
		mID, err = q.CreateMovement(ctx, "Meditate everyday", "daily", nil, nil)
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		_, err := q.CreateRelation(ctx, RelationSubscription, uID, mID)
		return err
	})
	if err != nil {
		t.Fatalf("first subscription: %v", err)
	}

	// A second active subscription for the same (user, movement) must
	// violate the partial unique index (invariant I1).
	err = s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		_, err := q.CreateRelation(ctx, RelationSubscription, uID, mID)
		return err
	})
	if err == nil {
		t.Fatal("expected second active subscription to be rejected")
	}
}

func TestEndActiveRelationThenRecreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var uID, mID int64
	err := s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		var err error
		uID, err = q.CreateUser(ctx, "c@example.com", "cas", "hash", false)
		if err != nil {
			return err
		}
		mID, err = q.CreateMovement(ctx, "Read daily", "daily", nil, nil)
		if err != nil {
			return err
		}
		_, err = q.CreateRelation(ctx, RelationSubscription, uID, mID)
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		ended, err := q.EndActiveRelation(ctx, RelationSubscription, uID, mID)
		if err != nil {
			return err
		}
		if !ended {
			t.Error("expected an active relation to be ended")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("end relation: %v", err)
	}

	// Once ended, a fresh subscription is allowed again.
	err = s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		_, err := q.CreateRelation(ctx, RelationSubscription, uID, mID)
		return err
	})
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
}

func TestPossibleLeadersExcludesSelfAndCurrentLeaders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var mID int64
	ids := make(map[string]int64)
	err := s.WithTx(ctx, func(ctx context.Context, q *Queries) error {
		var err error
		mID, err = q.CreateMovement(ctx, "Movement", "daily", nil, nil)
		if err != nil {
			return err
		}
		for _, name := range []string{"u0", "u1", "u2"} {
			id, err := q.CreateUser(ctx, name+"@example.com", name, "hash", false)
			if err != nil {
				return err
			}
			ids[name] = id
			if _, err := q.CreateRelation(ctx, RelationSubscription, id, mID); err != nil {
				return err
			}
		}
		_, err = q.CreateLink(ctx, ids["u0"], ids["u1"], mID)
		return err
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = s.WithRead(ctx, func(ctx context.Context, q *Queries) error {
		cands, err := q.PossibleLeaders(ctx, ids["u0"], mID)
		if err != nil {
			return err
		}
		if len(cands) != 1 || cands[0] != ids["u2"] {
			t.Errorf("possible leaders = %v, want [%d]", cands, ids["u2"])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
}
