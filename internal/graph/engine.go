// Package graph is the follower/leader graph engine (spec §4.6) — the
// core of the system. It wires new subscribers to leaders, rewires
// followers when a leader leaves, and lets a follower swap out a single
// leader, all while holding invariants I3/I5-I7 (at most one active edge
// per pair, at most four active leaders per follower, no self-edges, no
// duplicate leaders).
package graph

import (
	"context"
	"sync"

	"github.com/GridtNetwork/gridtlib/internal/grandom"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// DefaultFanOutCap is the per-follower maximum of active leaders (spec
// §3 I5, §4.6 "Fan-out cap"). Exposed as a single configurable value per
// the spec's requirement that implementations not hard-code it in more
// than one place.
const DefaultFanOutCap = 4

// Engine holds the collaborators the wiring routines need: the entity
// store, the injectable random source used for tie-breaking (spec §9),
// and the fan-out cap.
type Engine struct {
	store     *store.Store
	random    grandom.Source
	fanOutCap int

	locks sync.Map // movementID int64 -> *sync.Mutex
}

// NewEngine constructs a graph engine. A fanOutCap of 0 uses
// DefaultFanOutCap.
func NewEngine(s *store.Store, random grandom.Source, fanOutCap int) *Engine {
	if random == nil {
		random = grandom.System{}
	}
	if fanOutCap <= 0 {
		fanOutCap = DefaultFanOutCap
	}
	return &Engine{store: s, random: random, fanOutCap: fanOutCap}
}

// lockMovement returns the unlock func for movementID's advisory lock
// (SPEC_FULL §4.6). Every wiring routine below holds this lock for its
// full read-then-write sequence, in addition to running inside a single
// store transaction, so two concurrent callers can never observe the
// same candidate set for the same movement (spec §5).
func (e *Engine) lockMovement(movementID int64) func() {
	v, _ := e.locks.LoadOrStore(movementID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// User is the subset of store.User the graph engine exposes to callers;
// kept separate from store.User so packages above graph don't need to
// import store directly just to read a leader's identity.
type User struct {
	ID       int64
	Email    string
	Username string
	Bio      *string
	IsAdmin  bool
}

func userFromStore(u *store.User) *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, Email: u.Email, Username: u.Username, Bio: u.Bio, IsAdmin: u.IsAdmin}
}

// LeaderResult is what SwapLeader returns on a successful swap: the new
// leader plus their most recent signal in this movement, if any (spec
// §4.6 SwapLeader step 6).
type LeaderResult struct {
	Leader     *User
	LastSignal *store.Signal
}

// LeaderDetail is what GetLeader returns: the leader plus their three
// most recent signals in this movement (spec §4.6 GetLeader).
type LeaderDetail struct {
	Leader         *User
	MessageHistory []*store.Signal
}

// CurrentLeaders returns the active leaders of followerID in movementID
// (spec §4.6 terminology).
func (e *Engine) CurrentLeaders(ctx context.Context, followerID, movementID int64) ([]*User, error) {
	var out []*User
	err := e.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		links, err := q.ActiveLeaders(ctx, followerID, movementID)
		if err != nil {
			return err
		}
		for _, l := range links {
			u, err := q.GetUserByID(ctx, l.LeaderID)
			if err != nil {
				return err
			}
			out = append(out, userFromStore(u))
		}
		return nil
	})
	return out, err
}

// PossibleLeaders returns possibleLeaders(followerID, movementID) (spec
// §4.6 terminology): distinct, active subscribers of movementID other
// than followerID who are not already a current leader.
func (e *Engine) PossibleLeaders(ctx context.Context, followerID, movementID int64) ([]int64, error) {
	var out []int64
	err := e.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		out, err = q.PossibleLeaders(ctx, followerID, movementID)
		return err
	})
	return out, err
}

// PossibleFollowers returns possibleFollowers(leaderID, movementID)
// (spec §4.6 terminology): active subscribers of movementID other than
// leaderID, not already following leaderID, with fewer than the fan-out
// cap active leaders.
func (e *Engine) PossibleFollowers(ctx context.Context, leaderID, movementID int64) ([]int64, error) {
	var out []int64
	err := e.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		var err error
		out, err = q.PossibleFollowers(ctx, leaderID, movementID, e.fanOutCap)
		return err
	})
	return out, err
}

// FollowsLeader reports whether an active link (followerID, leaderID,
// movementID) exists (spec §4.6 FollowsLeader).
func (e *Engine) FollowsLeader(ctx context.Context, followerID, movementID, leaderID int64) (bool, error) {
	var ok bool
	err := e.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		link, err := q.GetActiveLink(ctx, followerID, leaderID, movementID)
		if err != nil {
			return err
		}
		ok = link != nil
		return nil
	})
	return ok, err
}

// GetLeader returns leaderID's profile plus their three most recent
// signals in movementID (spec §4.6 GetLeader), failing with NotFollowing
// if followerID has no active link to them.
func (e *Engine) GetLeader(ctx context.Context, followerID, movementID, leaderID int64) (*LeaderDetail, error) {
	var detail *LeaderDetail
	err := e.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		link, err := q.GetActiveLink(ctx, followerID, leaderID, movementID)
		if err != nil {
			return err
		}
		if link == nil {
			return gridterr.ErrNotFollowing
		}
		user, err := q.GetUserByID(ctx, leaderID)
		if err != nil {
			return err
		}
		if user == nil {
			return gridterr.ErrUserNotFound
		}
		history, err := q.RecentSignals(ctx, leaderID, movementID, 3)
		if err != nil {
			return err
		}
		detail = &LeaderDetail{Leader: userFromStore(user), MessageHistory: history}
		return nil
	})
	return detail, err
}
