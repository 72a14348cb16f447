// Package store is the entity store (spec §4.1): it owns the SQLite
// schema for every entity in §3 and hands out scoped transactions to
// controllers. Controllers never see a *sql.DB directly — they receive a
// *Queries bound to either a read-only or a read-write transaction and
// must not retain it past the callback.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
)

// Driver names this package knows how to migrate identically. "sqlite3"
// is the cgo driver (github.com/mattn/go-sqlite3), used in production.
// "sqlite" is the pure-Go driver (modernc.org/sqlite), used as the
// default for tests and anywhere a cgo toolchain is unavailable (spec §6).
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// InMemoryDSN is the connection string the test-suite uses by default: a
// private, in-process SQLite database that disappears when the
// connection closes.
const InMemoryDSN = "file::memory:?cache=shared"

// errNestedTransaction is returned when WithTx/WithRead is called from
// inside a callback that is already running in a transaction. The store
// contract (spec §4.1) is explicit that nested scopes are not supported:
// hooks must open a fresh scope after the triggering transaction commits.
var errNestedTransaction = errors.New("store: nested transaction scopes are not supported")

// Store owns the database handle and the clock used to stamp rows.
type Store struct {
	db     *sql.DB
	clock  clock.Clock
	driver string
}

// Open opens (and migrates) a SQLite database using driver ("sqlite3" or
// "sqlite") at dsn. Callers should Close the returned Store when done.
func Open(driver, dsn string, c clock.Clock) (*Store, error) {
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, fmt.Errorf("store: unknown driver %q (want %q or %q)", driver, DriverCGO, DriverPureGo)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	// SQLite allows exactly one writer at a time; a single shared
	// connection avoids SQLITE_BUSY from the pool itself serializing
	// with the per-movement advisory locks the graph engine takes
	// (spec §5 / SPEC_FULL §4.6).
	db.SetMaxOpenConns(1)

	if c == nil {
		c = clock.System{}
	}
	s := &Store{db: db, clock: c, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// execer is satisfied by both *sql.DB and *sql.Tx, letting Queries run
// against either a live transaction or (for migrations only) the bare
// handle.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries is the set of entity operations available within one
// transaction scope. Controllers receive one per WithTx/WithRead call
// and must not use it after the callback returns.
type Queries struct {
	tx    execer
	clock clock.Clock
}

// Now returns the instant this transaction should use for any row it
// stamps, taken from the injected clock (spec §6).
func (q *Queries) Now() time.Time { return q.clock.Now() }

type txKey struct{}

// WithTx runs fn inside a read-write transaction (BEGIN IMMEDIATE, the
// closest SQLite equivalent to the serializable isolation spec §5 asks
// for on the write path). On fn's normal return the transaction commits;
// on error or panic it rolls back. Transient SQLITE_BUSY/SQLITE_LOCKED
// errors are retried a bounded number of times with jittered backoff
// (spec §7) — this only helps the advisory-lock-free callers, since the
// graph engine already serializes writers per movement (SPEC_FULL §4.6).
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, q *Queries) error) error {
	if ctx.Value(txKey{}) != nil {
		return errNestedTransaction
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return gridterr.Wrap(gridterr.Timeout, "operation deadline exceeded", ctx.Err())
		}

		err := s.runTx(ctx, "BEGIN IMMEDIATE", fn)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		backoff := time.Duration(attempt+1) * 10 * time.Millisecond
		backoff += time.Duration(rand.IntN(10)) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return gridterr.Wrap(gridterr.Timeout, "operation deadline exceeded", ctx.Err())
		}
	}
	return fmt.Errorf("store: transaction failed after %d attempts: %w", maxAttempts, lastErr)
}

// WithRead runs fn inside a read-only transaction. It exists mainly for
// symmetry with WithTx and so every public query also gets the "each
// operation runs in its own scope" behavior described in spec §4.4.
func (s *Store) WithRead(ctx context.Context, fn func(ctx context.Context, q *Queries) error) error {
	if ctx.Value(txKey{}) != nil {
		return errNestedTransaction
	}
	if ctx.Err() != nil {
		return gridterr.Wrap(gridterr.Timeout, "operation deadline exceeded", ctx.Err())
	}
	return s.runTx(ctx, "BEGIN", fn)
}

// runTx drives the transaction off a raw *sql.Conn rather than sql.Tx so
// it can issue "BEGIN IMMEDIATE" directly — database/sql's Tx type only
// ever issues a plain "BEGIN", which SQLite treats as deferred (it
// doesn't take the write lock until the first write statement, too late
// for the graph engine's read-then-write sequences, see SPEC_FULL §4.6).
func (s *Store) runTx(ctx context.Context, beginStmt string, fn func(ctx context.Context, q *Queries) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ExecContext(ctx, beginStmt); err != nil {
		return fmt.Errorf("store: %s: %w", beginStmt, err)
	}

	q := &Queries{tx: conn, clock: s.clock}
	scoped := context.WithValue(ctx, txKey{}, struct{}{})

	defer func() {
		if p := recover(); p != nil {
			conn.ExecContext(context.Background(), "ROLLBACK")
			panic(p)
		}
	}()

	if err = fn(scoped, q); err != nil {
		if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "SQLITE_LOCKED")
}
