package announcement

import (
	"context"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

type fixture struct {
	svc        *Service
	s          *store.Store
	adminID    int64
	memberID   int64
	movementID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(store.DriverPureGo, store.InMemoryDSN, fc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{svc: NewService(s), s: s}
	ctx := context.Background()
	err = s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		f.adminID, err = q.CreateUser(ctx, "admin@example.com", "admin", "hash", true)
		if err != nil {
			return err
		}
		f.memberID, err = q.CreateUser(ctx, "member@example.com", "member", "hash", false)
		if err != nil {
			return err
		}
		f.movementID, err = q.CreateMovement(ctx, "Read daily", "daily", nil, nil)
		return err
	})
	if err != nil {
		t.Fatalf("fixture setup: %v", err)
	}
	return f
}

func TestCreateAnnouncementRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateAnnouncement(ctx, f.memberID, f.movementID, "hello")
	if !gridterr.Is(err, gridterr.UserNotAdmin) {
		t.Fatalf("got %v, want UserNotAdmin", err)
	}

	got, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, "hello")
	if err != nil {
		t.Fatalf("CreateAnnouncement: %v", err)
	}
	if got.Message != "hello" || got.PosterID != f.adminID {
		t.Errorf("got %+v", got)
	}
}

func TestUpdateAnnouncementByDifferentAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, "v1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var otherAdmin int64
	err = f.s.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		otherAdmin, err = q.CreateUser(ctx, "admin2@example.com", "admin2", "hash", true)
		return err
	})
	if err != nil {
		t.Fatalf("create other admin: %v", err)
	}

	if err := f.svc.UpdateAnnouncement(ctx, otherAdmin, created.ID, "v2"); err != nil {
		t.Fatalf("UpdateAnnouncement: %v", err)
	}

	list, err := f.svc.GetAnnouncements(ctx, f.movementID)
	if err != nil {
		t.Fatalf("GetAnnouncements: %v", err)
	}
	if len(list) != 1 || list[0].Message != "v2" {
		t.Errorf("got %+v, want single announcement with message v2", list)
	}
}

func TestDeleteAnnouncementExcludesFromActiveList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, "first")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, "second"); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := f.svc.DeleteAnnouncement(ctx, f.adminID, first.ID); err != nil {
		t.Fatalf("DeleteAnnouncement: %v", err)
	}

	list, err := f.svc.GetAnnouncements(ctx, f.movementID)
	if err != nil {
		t.Fatalf("GetAnnouncements: %v", err)
	}
	if len(list) != 1 || list[0].Message != "second" {
		t.Errorf("got %+v, want only 'second'", list)
	}
}

func TestGetAnnouncementsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		if _, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, msg); err != nil {
			t.Fatalf("create %q: %v", msg, err)
		}
	}

	list, err := f.svc.GetAnnouncements(ctx, f.movementID)
	if err != nil {
		t.Fatalf("GetAnnouncements: %v", err)
	}
	if len(list) != 3 || list[0].Message != "c" || list[2].Message != "a" {
		t.Errorf("got %+v, want newest first [c b a]", list)
	}
}

func TestLatestAnnouncement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if got, err := f.svc.Latest(ctx, f.movementID); err != nil || got != nil {
		t.Fatalf("Latest with none: got %+v, err %v", got, err)
	}

	if _, err := f.svc.CreateAnnouncement(ctx, f.adminID, f.movementID, "only"); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := f.svc.Latest(ctx, f.movementID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got == nil || got.Message != "only" {
		t.Errorf("got %+v, want 'only'", got)
	}
}
