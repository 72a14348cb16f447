// Package jsonview composes the JSON projections described in spec
// §4.11: the movement view (subscribed/leaders/last_signal_sent/
// last_announcement), user view (with/without email), signal view, and
// announcement view. It is deliberately a leaf — nothing in internal/
// imports jsonview.
package jsonview

import (
	"time"

	"github.com/GridtNetwork/gridtlib/internal/announcement"
	"github.com/GridtNetwork/gridtlib/internal/graph"
	"github.com/GridtNetwork/gridtlib/internal/identity"
	"github.com/GridtNetwork/gridtlib/internal/signal"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// timeJSON formats t as ISO-8601 with an explicit offset (spec §4.11:
// timestamps serialized with offset).
func timeJSON(t time.Time) string {
	return t.Format(time.RFC3339)
}

// UserJSON composes a User view (spec §4.11: `{id, username, bio,
// avatar, is_admin}`, `email` only when explicitly requested).
func UserJSON(u *identity.User, includeEmail bool) map[string]any {
	if u == nil {
		return nil
	}
	m := map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"bio":      u.Bio,
		"avatar":   u.Avatar,
		"is_admin": u.IsAdmin,
	}
	if includeEmail {
		m["email"] = u.Email
	}
	return m
}

// LeaderUserJSON composes the User portion of a graph leader (spec
// §4.11 `leaders[]`), deriving the avatar hash from the email graph.User
// carries rather than a precomputed field.
func LeaderUserJSON(u *graph.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"bio":      u.Bio,
		"avatar":   identity.AvatarHash(u.Email),
		"is_admin": u.IsAdmin,
	}
}

// signalFields composes a Signal view for history contexts (spec §4.6
// GetLeader's message_history, §4.7): `{time_stamp, message}` with the
// message key omitted entirely when nil.
func signalFields(ts time.Time, message *string) map[string]any {
	m := map[string]any{"time_stamp": timeJSON(ts)}
	if message != nil {
		m["message"] = *message
	}
	return m
}

// SignalJSON composes a Signal view for history contexts from a
// store-layer signal (returned directly by the graph engine).
func SignalJSON(sig *store.Signal) map[string]any {
	if sig == nil {
		return nil
	}
	return signalFields(sig.TimeStamp, sig.Message)
}

// ServiceSignalJSON is SignalJSON for the signal service's own wrapper
// type (returned by signal.Service.SendSignal/GetLastSignal).
func ServiceSignalJSON(sig *signal.Signal) map[string]any {
	if sig == nil {
		return nil
	}
	return signalFields(sig.TimeStamp, sig.Message)
}

// SignalJSONWithNullMessage composes a Signal view for the SwapLeader
// result context (spec §4.6 step 6, §4.7: included, possibly null, in
// the swap result), where the message key is always present.
func SignalJSONWithNullMessage(sig *store.Signal) map[string]any {
	if sig == nil {
		return map[string]any{"time_stamp": nil, "message": nil}
	}
	return map[string]any{"time_stamp": timeJSON(sig.TimeStamp), "message": sig.Message}
}

// AnnouncementJSON composes an Announcement view (spec §4.8: `{id,
// movement_id, poster, message, created_time, updated_time}`).
func AnnouncementJSON(a *announcement.Announcement) map[string]any {
	if a == nil {
		return nil
	}
	var updated any
	if a.UpdatedTime != nil {
		updated = timeJSON(*a.UpdatedTime)
	}
	return map[string]any{
		"id":           a.ID,
		"movement_id":  a.MovementID,
		"poster":       a.PosterID,
		"message":      a.Message,
		"created_time": timeJSON(a.CreatedTime),
		"updated_time": updated,
	}
}
