package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateUser inserts a new user and returns its assigned id. Fails with
// the driver's unique-constraint error if email is already taken; the
// identity controller translates that into a caller-facing message.
func (q *Queries) CreateUser(ctx context.Context, email, username, passwordHash string, isAdmin bool) (int64, error) {
	res, err := q.tx.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, is_admin) VALUES (?, ?, ?, ?)`,
		email, username, passwordHash, isAdmin)
	if err != nil {
		return 0, fmt.Errorf("store: create user: %w", err)
	}
	return res.LastInsertId()
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var bio sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsAdmin, &bio); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan user: %w", err)
	}
	if bio.Valid {
		u.Bio = &bio.String
	}
	return &u, nil
}

const userColumns = `id, email, username, password_hash, is_admin, bio`

// GetUserByID returns the user with the given id, or nil if none exists.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user with the given email, or nil if none
// exists.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := q.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateBio sets the user's bio text.
func (q *Queries) UpdateBio(ctx context.Context, userID int64, bio string) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE users SET bio = ? WHERE id = ?`, bio, userID)
	if err != nil {
		return fmt.Errorf("store: update bio: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the user's stored password hash.
func (q *Queries) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("store: update password hash: %w", err)
	}
	return nil
}

// UpdateEmail replaces the user's email address.
func (q *Queries) UpdateEmail(ctx context.Context, userID int64, email string) error {
	_, err := q.tx.ExecContext(ctx, `UPDATE users SET email = ? WHERE id = ?`, email, userID)
	if err != nil {
		return fmt.Errorf("store: update email: %w", err)
	}
	return nil
}
