// Package network implements network introspection (spec §4.9): a
// snapshot of a movement's peer graph as nodes and directed edges,
// suitable for rendering.
package network

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/store"
)

// Node is one active subscriber of a movement, plus their most recent
// signal in it, if any.
type Node struct {
	UserID     int64
	LastSignal *store.Signal
}

// Edge is one active UserToUserLink, reduced to its endpoints.
type Edge struct {
	FollowerID int64
	LeaderID   int64
}

// Snapshot is the full graph for one movement (spec §4.9 GetNetworkData).
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Service produces network snapshots.
type Service struct {
	store *store.Store
}

// NewService constructs a network introspection service over store.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// GetNetworkData returns movementID's current nodes and edges (spec
// §4.9). Nodes are every active subscriber; edges are every active
// UserToUserLink.
func (s *Service) GetNetworkData(ctx context.Context, movementID int64) (*Snapshot, error) {
	var snap Snapshot
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		subs, err := q.ListActiveRelationsByMovement(ctx, store.RelationSubscription, movementID)
		if err != nil {
			return err
		}
		for _, rel := range subs {
			sig, err := q.LastSignal(ctx, rel.UserID, movementID)
			if err != nil {
				return err
			}
			snap.Nodes = append(snap.Nodes, Node{UserID: rel.UserID, LastSignal: sig})
		}

		links, err := q.ActiveLinksInMovement(ctx, movementID)
		if err != nil {
			return err
		}
		for _, l := range links {
			snap.Edges = append(snap.Edges, Edge{FollowerID: l.FollowerID, LeaderID: l.LeaderID})
		}
		return nil
	})
	return &snap, err
}
