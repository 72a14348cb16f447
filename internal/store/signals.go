package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSignal appends an immutable Signal row (spec §3, §4.7).
func (q *Queries) CreateSignal(ctx context.Context, leaderID, movementID int64, message *string) (*Signal, error) {
	now := q.Now()
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO signals (leader_id, movement_id, time_stamp, message) VALUES (?, ?, ?, ?)`,
		leaderID, movementID, formatTime(now), message)
	if err != nil {
		return nil, fmt.Errorf("store: create signal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create signal: %w", err)
	}
	return &Signal{ID: id, LeaderID: leaderID, MovementID: movementID, TimeStamp: now, Message: message}, nil
}

const signalColumns = `id, leader_id, movement_id, time_stamp, message`

func scanSignalRow(rows *sql.Rows) (*Signal, error) {
	var s Signal
	var ts string
	var msg sql.NullString
	if err := rows.Scan(&s.ID, &s.LeaderID, &s.MovementID, &ts, &msg); err != nil {
		return nil, fmt.Errorf("store: scan signal: %w", err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return nil, fmt.Errorf("store: parse time_stamp: %w", err)
	}
	s.TimeStamp = t
	if msg.Valid {
		s.Message = &msg.String
	}
	return &s, nil
}

// LastSignal returns the most recent signal by leaderID in movementID,
// or nil if none exists.
func (q *Queries) LastSignal(ctx context.Context, leaderID, movementID int64) (*Signal, error) {
	signals, err := q.RecentSignals(ctx, leaderID, movementID, 1)
	if err != nil || len(signals) == 0 {
		return nil, err
	}
	return signals[0], nil
}

// RecentSignals returns up to limit signals by leaderID in movementID,
// newest first (spec §4.6 GetLeader's message_history uses limit=3,
// invariant I8: ordered by time_stamp).
func (q *Queries) RecentSignals(ctx context.Context, leaderID, movementID int64, limit int) ([]*Signal, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals
		 WHERE leader_id = ? AND movement_id = ?
		 ORDER BY time_stamp DESC, id DESC LIMIT ?`,
		leaderID, movementID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent signals: %w", err)
	}
	defer rows.Close()

	var out []*Signal
	for rows.Next() {
		s, err := scanSignalRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
