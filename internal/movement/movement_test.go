package movement

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(store.DriverPureGo, store.InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRegistry(s)
}

func TestCreateAndGetMovement(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	m, err := r.CreateMovement(ctx, "Read daily", "daily", nil, nil)
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	got, err := r.GetMovementByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMovementByID: %v", err)
	}
	if got.Name != "Read daily" {
		t.Errorf("got %+v", got)
	}

	if _, err := r.GetMovementByID(ctx, m.ID+999); !gridterr.Is(err, gridterr.MovementNotFound) {
		t.Fatalf("got %v, want MovementNotFound", err)
	}
}

func TestMovementNameExistsDetectsDuplicates(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	exists, err := r.MovementNameExists(ctx, "Read daily")
	if err != nil || exists {
		t.Fatalf("MovementNameExists before create = %v, %v, want false, nil", exists, err)
	}

	if _, err := r.CreateMovement(ctx, "Read daily", "daily", nil, nil); err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	exists, err = r.MovementNameExists(ctx, "Read daily")
	if err != nil || !exists {
		t.Fatalf("MovementNameExists after create = %v, %v, want true, nil", exists, err)
	}
}

func TestGetAllMovements(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for _, n := range []string{"A", "B", "C"} {
		if _, err := r.CreateMovement(ctx, n, "daily", nil, nil); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	all, err := r.GetAllMovements(ctx)
	if err != nil {
		t.Fatalf("GetAllMovements: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d movements, want 3", len(all))
	}
}
