package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateMovement inserts a new movement and returns its assigned id.
// No uniqueness check is performed here; callers use MovementNameExists
// first if they care (spec §4.3).
func (q *Queries) CreateMovement(ctx context.Context, name, interval string, shortDesc, longDesc *string) (int64, error) {
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO movements (name, interval, short_description, long_description) VALUES (?, ?, ?, ?)`,
		name, interval, shortDesc, longDesc)
	if err != nil {
		return 0, fmt.Errorf("store: create movement: %w", err)
	}
	return res.LastInsertId()
}

const movementColumns = `id, name, interval, short_description, long_description`

func scanMovement(row *sql.Row) (*Movement, error) {
	var m Movement
	var short, long sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.Interval, &short, &long); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan movement: %w", err)
	}
	if short.Valid {
		m.ShortDescription = &short.String
	}
	if long.Valid {
		m.LongDescription = &long.String
	}
	return &m, nil
}

// GetMovementByID returns the movement with the given id, or nil.
func (q *Queries) GetMovementByID(ctx context.Context, id int64) (*Movement, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = ?`, id)
	return scanMovement(row)
}

// GetMovementByName returns the first movement with the given name, or
// nil. Used by GetMovement(idOrName, ...) when the caller passes a name.
func (q *Queries) GetMovementByName(ctx context.Context, name string) (*Movement, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE name = ? LIMIT 1`, name)
	return scanMovement(row)
}

// MovementExists reports whether a movement with the given id exists.
func (q *Queries) MovementExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM movements WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: movement exists: %w", err)
	}
	return exists, nil
}

// MovementNameExists reports whether any movement has the given name
// (spec §4.3 — name is not unique at schema level, but duplicates must
// be detectable).
func (q *Queries) MovementNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM movements WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: movement name exists: %w", err)
	}
	return exists, nil
}

// ListMovements returns every movement, ordered by id.
func (q *Queries) ListMovements(ctx context.Context) ([]*Movement, error) {
	rows, err := q.tx.QueryContext(ctx, `SELECT `+movementColumns+` FROM movements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list movements: %w", err)
	}
	defer rows.Close()

	var out []*Movement
	for rows.Next() {
		var m Movement
		var short, long sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Interval, &short, &long); err != nil {
			return nil, fmt.Errorf("store: scan movement: %w", err)
		}
		if short.Valid {
			m.ShortDescription = &short.String
		}
		if long.Valid {
			m.LongDescription = &long.String
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
