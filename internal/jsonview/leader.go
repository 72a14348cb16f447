package jsonview

import "github.com/GridtNetwork/gridtlib/internal/graph"

// LeaderResultJSON composes SwapLeader's response (spec §4.6 SwapLeader
// step 6, §4.7): the new leader plus their last signal, with the
// message key always present (possibly null) — distinct from the
// omit-if-absent shape used for message history.
func LeaderResultJSON(r *graph.LeaderResult) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"leader":      LeaderUserJSON(r.Leader),
		"last_signal": SignalJSONWithNullMessage(r.LastSignal),
	}
}

// LeaderDetailJSON composes GetLeader's response (spec §4.6 GetLeader):
// the leader plus up to three recent signals, newest first, each
// omitting its message key when absent.
func LeaderDetailJSON(d *graph.LeaderDetail) map[string]any {
	if d == nil {
		return nil
	}
	history := make([]map[string]any, 0, len(d.MessageHistory))
	for _, sig := range d.MessageHistory {
		history = append(history, SignalJSON(sig))
	}
	return map[string]any{
		"leader":          LeaderUserJSON(d.Leader),
		"message_history": history,
	}
}
