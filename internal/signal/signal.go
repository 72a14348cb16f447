// Package signal implements the Signal service (spec §4.7): a leader
// broadcasting a low-ceremony "I did the thing" ping to their followers
// within one movement.
package signal

import (
	"context"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// Signal is the subset of store.Signal exposed to callers outside the
// storage layer.
type Signal struct {
	ID         int64
	LeaderID   int64
	MovementID int64
	TimeStamp  time.Time
	Message    *string
}

func fromStore(s *store.Signal) *Signal {
	if s == nil {
		return nil
	}
	return &Signal{ID: s.ID, LeaderID: s.LeaderID, MovementID: s.MovementID, TimeStamp: s.TimeStamp, Message: s.Message}
}

// Service sends and retrieves signals.
type Service struct {
	store *store.Store
}

// NewService constructs a signal service over store.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// SendSignal records a new signal from leaderID in movementID (spec
// §4.7 SendSignal). The caller must currently be an active leader of at
// least one follower in the movement; callers with zero followers are
// still permitted to send (a signal with no audience is not an error —
// it simply has no immediate reader), but a leaderID with no active
// subscription to movementID at all is rejected with NotSubscribed.
func (s *Service) SendSignal(ctx context.Context, leaderID, movementID int64, message *string) (*Signal, error) {
	var result *Signal
	err := s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		rel, err := q.GetActiveRelation(ctx, store.RelationSubscription, leaderID, movementID)
		if err != nil {
			return err
		}
		if rel == nil {
			return gridterr.ErrNotSubscribed
		}
		created, err := q.CreateSignal(ctx, leaderID, movementID, message)
		if err != nil {
			return err
		}
		result = fromStore(created)
		return nil
	})
	return result, err
}

// GetLastSignal returns the most recent signal leaderID sent in
// movementID, or nil if they have never sent one (spec §4.7
// GetLastSignal).
func (s *Service) GetLastSignal(ctx context.Context, leaderID, movementID int64) (*Signal, error) {
	var result *Signal
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		sig, err := q.LastSignal(ctx, leaderID, movementID)
		if err != nil {
			return err
		}
		result = fromStore(sig)
		return nil
	})
	return result, err
}
