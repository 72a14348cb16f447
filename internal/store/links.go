package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateLink inserts a new active follower->leader edge (spec §3).
// Callers are responsible for holding the movement's advisory lock and
// for having already checked the candidate-set invariants (I5-I7); this
// method performs the insert only.
func (q *Queries) CreateLink(ctx context.Context, followerID, leaderID, movementID int64) (*Link, error) {
	now := q.Now()
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO user_to_user_links (follower_id, leader_id, movement_id, created) VALUES (?, ?, ?, ?)`,
		followerID, leaderID, movementID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("store: create link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create link: %w", err)
	}
	return &Link{ID: id, FollowerID: followerID, LeaderID: leaderID, MovementID: movementID, Created: now}, nil
}

const linkColumns = `id, follower_id, leader_id, movement_id, created, destroyed`

func scanLinkRow(rows *sql.Rows) (*Link, error) {
	var l Link
	var created string
	var destroyed sql.NullString
	if err := rows.Scan(&l.ID, &l.FollowerID, &l.LeaderID, &l.MovementID, &created, &destroyed); err != nil {
		return nil, fmt.Errorf("store: scan link: %w", err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("store: parse created: %w", err)
	}
	l.Created = t
	if destroyed.Valid {
		dt, err := parseTime(destroyed.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse destroyed: %w", err)
		}
		l.Destroyed = &dt
	}
	return &l, nil
}

func (q *Queries) queryLinks(ctx context.Context, query string, args ...any) ([]*Link, error) {
	rows, err := q.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list links: %w", err)
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		l, err := scanLinkRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetActiveLink returns the active link (follower, leader, movement), or
// nil if none exists (invariant I3: there is at most one).
func (q *Queries) GetActiveLink(ctx context.Context, followerID, leaderID, movementID int64) (*Link, error) {
	rows, err := q.tx.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM user_to_user_links
		 WHERE follower_id = ? AND leader_id = ? AND movement_id = ? AND destroyed IS NULL LIMIT 1`,
		followerID, leaderID, movementID)
	if err != nil {
		return nil, fmt.Errorf("store: get active link: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanLinkRow(rows)
}

// ActiveLeaders returns the active outgoing links for a follower in a
// movement — currentLeaders(user, movement) from spec §4.6.
func (q *Queries) ActiveLeaders(ctx context.Context, followerID, movementID int64) ([]*Link, error) {
	return q.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM user_to_user_links
		 WHERE follower_id = ? AND movement_id = ? AND destroyed IS NULL ORDER BY leader_id`,
		followerID, movementID)
}

// ActiveFollowers returns the active incoming links for a leader in a
// movement.
func (q *Queries) ActiveFollowers(ctx context.Context, leaderID, movementID int64) ([]*Link, error) {
	return q.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM user_to_user_links
		 WHERE leader_id = ? AND movement_id = ? AND destroyed IS NULL ORDER BY follower_id`,
		leaderID, movementID)
}

// ActiveLinksInMovement returns every active link in a movement, used by
// the network introspection query (spec §4.9).
func (q *Queries) ActiveLinksInMovement(ctx context.Context, movementID int64) ([]*Link, error) {
	return q.queryLinks(ctx,
		`SELECT `+linkColumns+` FROM user_to_user_links
		 WHERE movement_id = ? AND destroyed IS NULL ORDER BY follower_id, leader_id`,
		movementID)
}

// ActiveLeaderCount returns the number of active outgoing links a
// follower has in a movement, used by possibleFollowers' fan-out check
// (spec §4.6: "fewer than 4 active leaders").
func (q *Queries) ActiveLeaderCount(ctx context.Context, followerID, movementID int64) (int, error) {
	var n int
	err := q.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_to_user_links WHERE follower_id = ? AND movement_id = ? AND destroyed IS NULL`,
		followerID, movementID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: active leader count: %w", err)
	}
	return n, nil
}

// DestroyLink marks an active link destroyed (idempotent: destroying an
// already-destroyed link affects zero rows rather than erroring or
// overwriting the original timestamp, per spec §9).
func (q *Queries) DestroyLink(ctx context.Context, linkID int64) error {
	_, err := q.tx.ExecContext(ctx,
		`UPDATE user_to_user_links SET destroyed = ? WHERE id = ? AND destroyed IS NULL`,
		formatTime(q.Now()), linkID)
	if err != nil {
		return fmt.Errorf("store: destroy link: %w", err)
	}
	return nil
}

// PossibleLeaders returns users actively subscribed to movementID, other
// than followerID, who are not already an active leader of followerID in
// that movement (spec §4.6 possibleLeaders).
func (q *Queries) PossibleLeaders(ctx context.Context, followerID, movementID int64) ([]int64, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT r.user_id
		FROM movement_user_relations r
		WHERE r.kind = 'subscription' AND r.movement_id = ? AND r.time_removed IS NULL
		  AND r.user_id != ?
		  AND r.user_id NOT IN (
			SELECT leader_id FROM user_to_user_links
			WHERE follower_id = ? AND movement_id = ? AND destroyed IS NULL
		  )
		ORDER BY r.user_id`,
		movementID, followerID, followerID, movementID)
	if err != nil {
		return nil, fmt.Errorf("store: possible leaders: %w", err)
	}
	return scanIDs(rows)
}

// PossibleFollowers returns users actively subscribed to movementID,
// other than leaderID, who do not already follow leaderID in that
// movement and have fewer than fanOutCap active leaders (spec §4.6
// possibleFollowers).
func (q *Queries) PossibleFollowers(ctx context.Context, leaderID, movementID int64, fanOutCap int) ([]int64, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT r.user_id
		FROM movement_user_relations r
		WHERE r.kind = 'subscription' AND r.movement_id = ? AND r.time_removed IS NULL
		  AND r.user_id != ?
		  AND r.user_id NOT IN (
			SELECT follower_id FROM user_to_user_links
			WHERE leader_id = ? AND movement_id = ? AND destroyed IS NULL
		  )
		  AND (
			SELECT COUNT(*) FROM user_to_user_links
			WHERE follower_id = r.user_id AND movement_id = ? AND destroyed IS NULL
		  ) < ?
		ORDER BY r.user_id`,
		movementID, leaderID, leaderID, movementID, movementID, fanOutCap)
	if err != nil {
		return nil, fmt.Errorf("store: possible followers: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
