// Package store persists tickets, bookings and ledger transactions in the
// pocketbase SQLite database through dbx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/pocketbase/pocketbase/tools/types"

	"tickethive/internal/status"
)

const (
	TicketsTable      = "tickets"
	BookingsTable     = "bookings"
	TransactionsTable = "transactions"
	UsersTable        = "users"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

type Store struct {
	db dbx.Builder
}

func New(db dbx.Builder) *Store {
	return &Store{db: db}
}

// DB exposes the underlying builder for collaborators reading other tables.
func (s *Store) DB() dbx.Builder {
	return s.db
}

// RunInTransaction runs fn against a store bound to a single SQL transaction.
// When the store is already inside a transaction, or the builder cannot open
// one, fn runs against s directly.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Store) error) error {
	db, ok := s.db.(*dbx.DB)
	if !ok {
		return fn(s)
	}

	return db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		return fn(&Store{db: tx})
	})
}

func newID() string {
	return security.RandomStringWithAlphabet(15, idAlphabet)
}

func now() types.DateTime {
	return types.NowDateTime()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, status.ErrNotFound)
	}
	return fmt.Errorf("find %s %s: %w", what, id, err)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
