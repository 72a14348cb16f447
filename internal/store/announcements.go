package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateAnnouncement inserts a new active announcement (spec §4.8).
func (q *Queries) CreateAnnouncement(ctx context.Context, movementID, posterID int64, message string) (*Announcement, error) {
	now := q.Now()
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO announcements (movement_id, poster_id, message, created_time) VALUES (?, ?, ?, ?)`,
		movementID, posterID, message, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("store: create announcement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create announcement: %w", err)
	}
	return &Announcement{ID: id, MovementID: movementID, PosterID: posterID, Message: message, CreatedTime: now}, nil
}

const announcementColumns = `id, movement_id, poster_id, message, created_time, updated_time, removed_time`

func scanAnnouncementRow(rows *sql.Rows) (*Announcement, error) {
	var a Announcement
	var created string
	var updated, removed sql.NullString
	if err := rows.Scan(&a.ID, &a.MovementID, &a.PosterID, &a.Message, &created, &updated, &removed); err != nil {
		return nil, fmt.Errorf("store: scan announcement: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_time: %w", err)
	}
	a.CreatedTime = t
	if updated.Valid {
		ut, err := parseTime(updated.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse updated_time: %w", err)
		}
		a.UpdatedTime = &ut
	}
	if removed.Valid {
		rt, err := parseTime(removed.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse removed_time: %w", err)
		}
		a.RemovedTime = &rt
	}
	return &a, nil
}

func scanAnnouncement(row *sql.Row) (*Announcement, error) {
	var a Announcement
	var created string
	var updated, removed sql.NullString
	if err := row.Scan(&a.ID, &a.MovementID, &a.PosterID, &a.Message, &created, &updated, &removed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan announcement: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_time: %w", err)
	}
	a.CreatedTime = t
	if updated.Valid {
		ut, err := parseTime(updated.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse updated_time: %w", err)
		}
		a.UpdatedTime = &ut
	}
	if removed.Valid {
		rt, err := parseTime(removed.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse removed_time: %w", err)
		}
		a.RemovedTime = &rt
	}
	return &a, nil
}

// GetAnnouncementByID returns the announcement with the given id, active
// or not, or nil.
func (q *Queries) GetAnnouncementByID(ctx context.Context, id int64) (*Announcement, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id)
	return scanAnnouncement(row)
}

// UpdateAnnouncementMessage sets a new message and stamps updated_time
// (spec §4.8).
func (q *Queries) UpdateAnnouncementMessage(ctx context.Context, id int64, message string) error {
	_, err := q.tx.ExecContext(ctx,
		`UPDATE announcements SET message = ?, updated_time = ? WHERE id = ?`,
		message, formatTime(q.Now()), id)
	if err != nil {
		return fmt.Errorf("store: update announcement: %w", err)
	}
	return nil
}

// RemoveAnnouncement soft-deletes an announcement by stamping
// removed_time. Idempotent: calling it twice does not overwrite the
// first removal time (spec §9).
func (q *Queries) RemoveAnnouncement(ctx context.Context, id int64) error {
	_, err := q.tx.ExecContext(ctx,
		`UPDATE announcements SET removed_time = ? WHERE id = ? AND removed_time IS NULL`,
		formatTime(q.Now()), id)
	if err != nil {
		return fmt.Errorf("store: remove announcement: %w", err)
	}
	return nil
}

// ActiveAnnouncements returns active announcements for a movement,
// newest first by created_time (spec P8).
func (q *Queries) ActiveAnnouncements(ctx context.Context, movementID int64) ([]*Announcement, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT `+announcementColumns+` FROM announcements
		 WHERE movement_id = ? AND removed_time IS NULL
		 ORDER BY created_time DESC, id DESC`,
		movementID)
	if err != nil {
		return nil, fmt.Errorf("store: active announcements: %w", err)
	}
	defer rows.Close()

	var out []*Announcement
	for rows.Next() {
		a, err := scanAnnouncementRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestAnnouncement returns the single newest active announcement for a
// movement, or nil.
func (q *Queries) LatestAnnouncement(ctx context.Context, movementID int64) (*Announcement, error) {
	all, err := q.ActiveAnnouncements(ctx, movementID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}
