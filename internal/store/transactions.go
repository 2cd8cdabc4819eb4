package store

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"tickethive/models"
)

var transactionColumns = []string{
	"id", "session_id", "booking_id", "ticket_id", "user_email", "vendor_email",
	"title", "quantity", "amount", "currency", "created",
}

// InsertTransaction records the ledger row for a confirmed session. A row for
// the same session id already present is left untouched and reported as
// inserted == false.
func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) (bool, error) {
	if tx.ID == "" {
		tx.ID = newID()
	}
	tx.Created = now()

	res, err := s.db.NewQuery(`INSERT INTO {{transactions}}
		([[id]], [[session_id]], [[booking_id]], [[ticket_id]], [[user_email]], [[vendor_email]],
		 [[title]], [[quantity]], [[amount]], [[currency]], [[created]])
		VALUES ({:id}, {:session_id}, {:booking_id}, {:ticket_id}, {:user_email}, {:vendor_email},
		 {:title}, {:quantity}, {:amount}, {:currency}, {:created})
		ON CONFLICT([[session_id]]) DO NOTHING`,
	).Bind(dbx.Params{
		"id":           tx.ID,
		"session_id":   tx.SessionID,
		"booking_id":   tx.BookingID,
		"ticket_id":    tx.TicketID,
		"user_email":   tx.UserEmail,
		"vendor_email": tx.VendorEmail,
		"title":        tx.Title,
		"quantity":     tx.Quantity,
		"amount":       tx.Amount.String(),
		"currency":     tx.Currency,
		"created":      tx.Created.String(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("insert transaction for session %s: %w", tx.SessionID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) FindTransactionBySession(ctx context.Context, sessionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Select(transactionColumns...).
		From(TransactionsTable).
		Where(dbx.HashExp{"session_id": sessionID}).
		WithContext(ctx).
		One(&tx)
	if err != nil {
		return nil, notFound(err, "transaction for session", sessionID)
	}
	return &tx, nil
}

func (s *Store) ListTransactionsByUser(ctx context.Context, email string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := s.db.Select(transactionColumns...).
		From(TransactionsTable).
		Where(dbx.HashExp{"user_email": email}).
		OrderBy("created DESC", "id DESC").
		WithContext(ctx).
		All(&txs)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// VendorRevenue sums the vendor's ledger rows as decimals.
func (s *Store) VendorRevenue(ctx context.Context, email string) (*models.Revenue, error) {
	var rows []struct {
		Quantity int             `db:"quantity"`
		Amount   decimal.Decimal `db:"amount"`
	}
	err := s.db.Select("quantity", "amount").
		From(TransactionsTable).
		Where(dbx.HashExp{"vendor_email": email}).
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("vendor revenue: %w", err)
	}

	rev := &models.Revenue{VendorEmail: email, Total: decimal.Zero}
	for _, r := range rows {
		rev.Transactions++
		rev.UnitsSold += r.Quantity
		rev.Total = rev.Total.Add(r.Amount)
	}
	return rev, nil
}
