package jsonview

import (
	"context"

	"github.com/GridtNetwork/gridtlib/internal/announcement"
	"github.com/GridtNetwork/gridtlib/internal/graph"
	"github.com/GridtNetwork/gridtlib/internal/movement"
	"github.com/GridtNetwork/gridtlib/internal/signal"
	"github.com/GridtNetwork/gridtlib/internal/subscription"
)

// Composer assembles the movement view (spec §4.11) from the
// collaborators that each own one slice of it: the registry for the
// movement's own fields, the subscription controller for whether the
// viewer is subscribed, the announcement service for the latest post,
// the graph engine for current leaders, and the signal service for the
// viewer's own last-sent signal.
type Composer struct {
	Movements     *movement.Registry
	Subscriptions *subscription.Controller
	Announcements *announcement.Service
	Graph         *graph.Engine
	Signals       *signal.Service
}

// NewComposer constructs a view composer over its collaborators.
func NewComposer(m *movement.Registry, subs *subscription.Controller, ann *announcement.Service, g *graph.Engine, sig *signal.Service) *Composer {
	return &Composer{Movements: m, Subscriptions: subs, Announcements: ann, Graph: g, Signals: sig}
}

// MovementView composes the full JSON view of movementID as seen by
// viewerID (spec §4.11): `{id, name, short_description, description,
// interval, subscribed, last_announcement, last_signal_sent, leaders}`.
// last_signal_sent is only populated when viewerID is subscribed — an
// unsubscribed viewer has no signal of their own to report in this
// movement.
func (c *Composer) MovementView(ctx context.Context, movementID, viewerID int64) (map[string]any, error) {
	m, err := c.Movements.GetMovementByID(ctx, movementID)
	if err != nil {
		return nil, err
	}

	subscribed, err := c.Subscriptions.IsSubscribed(ctx, viewerID, movementID)
	if err != nil {
		return nil, err
	}

	latest, err := c.Announcements.Latest(ctx, movementID)
	if err != nil {
		return nil, err
	}

	view := map[string]any{
		"id":                m.ID,
		"name":              m.Name,
		"short_description": m.ShortDescription,
		"description":       m.LongDescription,
		"interval":          m.Interval,
		"subscribed":        subscribed,
		"last_announcement": AnnouncementJSON(latest),
	}

	if subscribed {
		lastSignal, err := c.Signals.GetLastSignal(ctx, viewerID, movementID)
		if err != nil {
			return nil, err
		}
		view["last_signal_sent"] = ServiceSignalJSON(lastSignal)

		leaders, err := c.Graph.CurrentLeaders(ctx, viewerID, movementID)
		if err != nil {
			return nil, err
		}
		leaderViews := make([]map[string]any, 0, len(leaders))
		for _, leader := range leaders {
			lv := LeaderUserJSON(leader)
			lastFromLeader, err := c.Signals.GetLastSignal(ctx, leader.ID, movementID)
			if err != nil {
				return nil, err
			}
			if lastFromLeader != nil {
				lv["last_signal"] = ServiceSignalJSON(lastFromLeader)
			}
			leaderViews = append(leaderViews, lv)
		}
		view["leaders"] = leaderViews
	} else {
		view["last_signal_sent"] = nil
		view["leaders"] = []map[string]any{}
	}

	return view, nil
}
