package store

import (
	"context"

	"vidtrans/internal/models"
)

// LedgerStore owns the append-only transactions table. Rows are written
// exactly once inside the balance mutation transaction and never updated.
type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

type LedgerEntryInput struct {
	ID           string
	UserID       string
	ProjectID    *string
	Type         string
	Amount       int64
	BalanceAfter int64
	Description  string
}

func (s *LedgerStore) Insert(ctx context.Context, tx Execer, entry LedgerEntryInput) error {
	query := `
		INSERT INTO transactions (id, user_id, project_id, type, amount, balance_after, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.ProjectID, entry.Type,
		entry.Amount, entry.BalanceAfter, entry.Description,
	)
	return err
}

func (s *LedgerStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	query := `
		SELECT id, user_id, project_id, type, amount, balance_after, description, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	if txType != "" {
		query += ` AND type = $2`
		args = append(args, txType)
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LedgerStats aggregates a user's ledger by direction. Both totals are
// non-negative: credits count toward recharged, debits toward consumed.
type LedgerStats struct {
	TotalRecharged int64 `db:"total_recharged"`
	TotalConsumed  int64 `db:"total_consumed"`
}

func (s *LedgerStore) StatsByUser(ctx context.Context, userID string) (LedgerStats, error) {
	var row LedgerStats
	err := s.db.GetContext(ctx, &row, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS total_recharged,
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0) AS total_consumed
		FROM transactions
		WHERE user_id = $1
	`, userID)
	return row, err
}

// SumByUser recomputes a balance from the ledger. Reconciliation only; the
// users.balance column stays the serving copy.
func (s *LedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1
	`, userID)
	return sum, err
}
