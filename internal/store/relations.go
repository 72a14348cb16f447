package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateRelation inserts a new active Subscription or Creation row
// (spec §9: both share the movement_user_relations table, discriminated
// by kind). time_added is stamped from the transaction's clock.
func (q *Queries) CreateRelation(ctx context.Context, kind RelationKind, userID, movementID int64) (*Relation, error) {
	now := q.Now()
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO movement_user_relations (kind, user_id, movement_id, time_added) VALUES (?, ?, ?, ?)`,
		string(kind), userID, movementID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("store: create relation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create relation: %w", err)
	}
	return &Relation{ID: id, Kind: kind, UserID: userID, MovementID: movementID, TimeAdded: now}, nil
}

const relationColumns = `id, kind, user_id, movement_id, time_added, time_removed`

func scanRelation(row *sql.Row) (*Relation, error) {
	var r Relation
	var kind string
	var added string
	var removed sql.NullString
	if err := row.Scan(&r.ID, &kind, &r.UserID, &r.MovementID, &added, &removed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan relation: %w", err)
	}
	r.Kind = RelationKind(kind)
	t, err := parseTime(added)
	if err != nil {
		return nil, fmt.Errorf("store: parse time_added: %w", err)
	}
	r.TimeAdded = t
	if removed.Valid {
		rt, err := parseTime(removed.String)
		if err != nil {
			return nil, fmt.Errorf("store: parse time_removed: %w", err)
		}
		r.TimeRemoved = &rt
	}
	return &r, nil
}

// GetActiveRelation returns the active Subscription/Creation for
// (kind, userID, movementID), or nil if none is active (invariants
// I1/I2: there is at most one).
func (q *Queries) GetActiveRelation(ctx context.Context, kind RelationKind, userID, movementID int64) (*Relation, error) {
	row := q.tx.QueryRowContext(ctx,
		`SELECT `+relationColumns+` FROM movement_user_relations
		 WHERE kind = ? AND user_id = ? AND movement_id = ? AND time_removed IS NULL`,
		string(kind), userID, movementID)
	return scanRelation(row)
}

// EndActiveRelation sets time_removed = now on the active relation
// matching (kind, userID, movementID). Returns sql.ErrNoRows-equivalent
// false if none was active.
func (q *Queries) EndActiveRelation(ctx context.Context, kind RelationKind, userID, movementID int64) (bool, error) {
	res, err := q.tx.ExecContext(ctx,
		`UPDATE movement_user_relations SET time_removed = ?
		 WHERE kind = ? AND user_id = ? AND movement_id = ? AND time_removed IS NULL`,
		formatTime(q.Now()), string(kind), userID, movementID)
	if err != nil {
		return false, fmt.Errorf("store: end relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: end relation: %w", err)
	}
	return n > 0, nil
}

// ListActiveRelationsByMovement returns every active relation of kind in
// a movement (used for GetSubscribers / network snapshots).
func (q *Queries) ListActiveRelationsByMovement(ctx context.Context, kind RelationKind, movementID int64) ([]*Relation, error) {
	return q.queryRelations(ctx,
		`SELECT `+relationColumns+` FROM movement_user_relations
		 WHERE kind = ? AND movement_id = ? AND time_removed IS NULL ORDER BY user_id`,
		string(kind), movementID)
}

// ListActiveRelationsByUser returns every active relation of kind for a
// user, across all movements (used for GetSubscriptions).
func (q *Queries) ListActiveRelationsByUser(ctx context.Context, kind RelationKind, userID int64) ([]*Relation, error) {
	return q.queryRelations(ctx,
		`SELECT `+relationColumns+` FROM movement_user_relations
		 WHERE kind = ? AND user_id = ? AND time_removed IS NULL ORDER BY movement_id`,
		string(kind), userID)
}

func (q *Queries) queryRelations(ctx context.Context, query string, args ...any) ([]*Relation, error) {
	rows, err := q.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list relations: %w", err)
	}
	defer rows.Close()

	var out []*Relation
	for rows.Next() {
		var r Relation
		var kind, added string
		var removed sql.NullString
		if err := rows.Scan(&r.ID, &kind, &r.UserID, &r.MovementID, &added, &removed); err != nil {
			return nil, fmt.Errorf("store: scan relation: %w", err)
		}
		r.Kind = RelationKind(kind)
		t, err := parseTime(added)
		if err != nil {
			return nil, fmt.Errorf("store: parse time_added: %w", err)
		}
		r.TimeAdded = t
		if removed.Valid {
			rt, err := parseTime(removed.String)
			if err != nil {
				return nil, fmt.Errorf("store: parse time_removed: %w", err)
			}
			r.TimeRemoved = &rt
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
