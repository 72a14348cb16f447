// Package announcement implements the Announcement service (spec §4.8):
// admin-authored movement-wide posts, soft-deleted rather than removed.
package announcement

import (
	"context"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// Announcement is the subset of store.Announcement exposed to callers.
type Announcement struct {
	ID          int64
	MovementID  int64
	PosterID    int64
	Message     string
	CreatedTime time.Time
	UpdatedTime *time.Time
	RemovedTime *time.Time
}

func fromStore(a *store.Announcement) *Announcement {
	if a == nil {
		return nil
	}
	return &Announcement{
		ID:          a.ID,
		MovementID:  a.MovementID,
		PosterID:    a.PosterID,
		Message:     a.Message,
		CreatedTime: a.CreatedTime,
		UpdatedTime: a.UpdatedTime,
		RemovedTime: a.RemovedTime,
	}
}

// Service manages announcements.
type Service struct {
	store *store.Store
}

// NewService constructs an announcement service over store.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) requireAdmin(ctx context.Context, q *store.Queries, userID int64) error {
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
	return nil
}

// CreateAnnouncement posts a new announcement to movementID as userID
// (spec §4.8 CreateAnnouncement). userID must be an admin; movementID
// must exist.
func (s *Service) CreateAnnouncement(ctx context.Context, userID, movementID int64, message string) (*Announcement, error) {
	var result *Announcement
	err := s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		if err := s.requireAdmin(ctx, q, userID); err != nil {
			return err
		}
		movement, err := q.GetMovementByID(ctx, movementID)
		if err != nil {
			return err
		}
		if movement == nil {
			return gridterr.ErrMovementNotFound
		}
		created, err := q.CreateAnnouncement(ctx, movementID, userID, message)
		if err != nil {
			return err
		}
		result = fromStore(created)
		return nil
	})
	return result, err
}

// UpdateAnnouncement replaces an announcement's message (spec §4.8
// UpdateAnnouncement). Any admin may update, not only the original
// poster.
func (s *Service) UpdateAnnouncement(ctx context.Context, userID, announcementID int64, message string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		if err := s.requireAdmin(ctx, q, userID); err != nil {
			return err
		}
		existing, err := q.GetAnnouncementByID(ctx, announcementID)
		if err != nil {
			return err
		}
		if existing == nil {
			return gridterr.ErrAnnouncementNotFound
		}
		return q.UpdateAnnouncementMessage(ctx, announcementID, message)
	})
}

// DeleteAnnouncement soft-deletes an announcement (spec §4.8
// DeleteAnnouncement). Admin-only; the row remains, with removedTime
// stamped.
func (s *Service) DeleteAnnouncement(ctx context.Context, userID, announcementID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		if err := s.requireAdmin(ctx, q, userID); err != nil {
			return err
		}
		existing, err := q.GetAnnouncementByID(ctx, announcementID)
		if err != nil {
			return err
		}
		if existing == nil {
			return gridterr.ErrAnnouncementNotFound
		}
		return q.RemoveAnnouncement(ctx, announcementID)
	})
}

// GetAnnouncements returns active announcements for movementID, newest
// first (spec §4.8 GetAnnouncements, property P8).
func (s *Service) GetAnnouncements(ctx context.Context, movementID int64) ([]*Announcement, error) {
	var out []*Announcement
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		rows, err := q.ActiveAnnouncements(ctx, movementID)
		if err != nil {
			return err
		}
		for _, a := range rows {
			out = append(out, fromStore(a))
		}
		return nil
	})
	return out, err
}

// Latest returns movementID's single newest active announcement, or nil
// (used by jsonview's AddLastAnnouncementToView, spec §4.8/§4.11).
func (s *Service) Latest(ctx context.Context, movementID int64) (*Announcement, error) {
	var result *Announcement
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		a, err := q.LatestAnnouncement(ctx, movementID)
		if err != nil {
			return err
		}
		result = fromStore(a)
		return nil
	})
	return result, err
}
