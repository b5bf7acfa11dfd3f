package store

import (
	"context"
	"database/sql"
	"errors"

	"vidtrans/internal/models"

	"github.com/shopspring/decimal"
)

type RechargeStore struct {
	db DB
}

func NewRechargeStore(db DB) *RechargeStore {
	return &RechargeStore{db: db}
}

type RechargeOrderInput struct {
	OrderNo string
	UserID  string
	Amount  decimal.Decimal
	Points  int64
	Channel string
}

func (s *RechargeStore) Create(ctx context.Context, input RechargeOrderInput) error {
	query := `
		INSERT INTO recharge_orders (order_no, user_id, amount, points, channel, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
	`
	_, err := s.db.ExecContext(ctx, query,
		input.OrderNo, input.UserID, input.Amount, input.Points, input.Channel,
	)
	return err
}

func (s *RechargeStore) GetByOrderNo(ctx context.Context, orderNo string) (models.RechargeOrder, error) {
	var row models.RechargeOrder
	err := s.db.GetContext(ctx, &row, `
		SELECT order_no, user_id, amount, points, channel, status, error, created_at, paid_at
		FROM recharge_orders
		WHERE order_no = $1
	`, orderNo)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RechargeOrder{}, ErrNotFound
	}
	return row, err
}

func (s *RechargeStore) GetForUser(ctx context.Context, orderNo, userID string) (models.RechargeOrder, error) {
	var row models.RechargeOrder
	err := s.db.GetContext(ctx, &row, `
		SELECT order_no, user_id, amount, points, channel, status, error, created_at, paid_at
		FROM recharge_orders
		WHERE order_no = $1 AND user_id = $2
	`, orderNo, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RechargeOrder{}, ErrNotFound
	}
	return row, err
}

// MarkPaid flips pending -> paid. Paid and failed are terminal, so the
// conditional update reports whether this call won the transition.
func (s *RechargeStore) MarkPaid(ctx context.Context, tx Execer, orderNo string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE recharge_orders
		SET status = 'paid', paid_at = now()
		WHERE order_no = $1 AND status = 'pending'
	`, orderNo)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (s *RechargeStore) MarkFailed(ctx context.Context, orderNo, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE recharge_orders
		SET status = 'failed', error = $1
		WHERE order_no = $2 AND status = 'pending'
	`, reason, orderNo)
	return err
}
