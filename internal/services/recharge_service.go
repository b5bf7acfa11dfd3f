package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidtrans/internal/credits"
	"vidtrans/internal/db"
	"vidtrans/internal/models"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidChannel = errors.New("invalid payment channel")
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderFailed    = errors.New("order failed")
)

// errOrderTerminal aborts the credit transaction when another caller already
// settled the order.
var errOrderTerminal = errors.New("order already terminal")

type RechargeStore interface {
	Create(ctx context.Context, input store.RechargeOrderInput) error
	GetByOrderNo(ctx context.Context, orderNo string) (models.RechargeOrder, error)
	GetForUser(ctx context.Context, orderNo, userID string) (models.RechargeOrder, error)
	MarkPaid(ctx context.Context, tx store.Execer, orderNo string) (bool, error)
	MarkFailed(ctx context.Context, orderNo, reason string) error
}

type UserReader interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

// RechargeService converts a currency payment into credits through a
// recharge order. The payment gateways are stubs; an order is settled
// immediately after creation, and the gateway callbacks re-drive settlement
// idempotently.
type RechargeService struct {
	txRunner      db.TxRunner
	orders        RechargeStore
	users         UserReader
	ledger        Ledger
	hub           UpdateBroadcaster
	pointsPerUnit int64
}

func NewRechargeService(txRunner db.TxRunner, orders RechargeStore, users UserReader, ledger Ledger, hub UpdateBroadcaster, pointsPerUnit int64) *RechargeService {
	return &RechargeService{
		txRunner:      txRunner,
		orders:        orders,
		users:         users,
		ledger:        ledger,
		hub:           hub,
		pointsPerUnit: pointsPerUnit,
	}
}

type RechargeResult struct {
	OrderNo string
	Amount  decimal.Decimal
	Points  int64
	Channel string
	Status  string
	Balance int64
}

func validChannel(channel string) bool {
	return channel == "alipay" || channel == "wechat"
}

// Recharge creates a pending order and settles it.
func (s *RechargeService) Recharge(ctx context.Context, userID string, amount decimal.Decimal, channel string) (RechargeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return RechargeResult{}, ErrInvalidAmount
	}
	if !validChannel(channel) {
		return RechargeResult{}, ErrInvalidChannel
	}
	points := credits.PointsForAmount(amount, s.pointsPerUnit)
	if points <= 0 {
		return RechargeResult{}, ErrInvalidAmount
	}
	orderNo := fmt.Sprintf("R%d%s", time.Now().UnixMilli(), userID)
	if err := s.orders.Create(ctx, store.RechargeOrderInput{
		OrderNo: orderNo,
		UserID:  userID,
		Amount:  amount,
		Points:  points,
		Channel: channel,
	}); err != nil {
		return RechargeResult{}, err
	}
	zap.L().Info("recharge order created",
		zap.String("order_no", orderNo),
		zap.String("user_id", userID),
		zap.Int64("points", points))
	return s.CompleteOrder(ctx, orderNo)
}

// CompleteOrder settles a pending order: credits the points and flips the
// order to paid in one transaction. Settling an already-paid order is an
// idempotent success; a failed order stays failed.
func (s *RechargeService) CompleteOrder(ctx context.Context, orderNo string) (RechargeResult, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RechargeResult{}, ErrOrderNotFound
		}
		return RechargeResult{}, err
	}
	switch order.Status {
	case models.OrderPaid:
		return s.result(ctx, order, order.Status)
	case models.OrderFailed:
		return RechargeResult{}, ErrOrderFailed
	}

	description := fmt.Sprintf("recharge %s via %s for %d points", order.Amount.StringFixed(2), order.Channel, order.Points)
	var balance int64
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		won, err := s.orders.MarkPaid(ctx, tx, orderNo)
		if err != nil {
			return err
		}
		if !won {
			return errOrderTerminal
		}
		balance, err = s.ledger.CreditTx(ctx, tx, order.UserID, order.Points, nil, description)
		return err
	})
	if errors.Is(err, errOrderTerminal) {
		// Lost the race; report whatever state the winner left.
		settled, err := s.orders.GetByOrderNo(ctx, orderNo)
		if err != nil {
			return RechargeResult{}, err
		}
		if settled.Status == models.OrderPaid {
			return s.result(ctx, settled, settled.Status)
		}
		return RechargeResult{}, ErrOrderFailed
	}
	if err != nil {
		if markErr := s.orders.MarkFailed(ctx, orderNo, err.Error()); markErr != nil {
			zap.L().Error("failed to mark recharge order failed",
				zap.String("order_no", orderNo),
				zap.Error(markErr))
		}
		return RechargeResult{}, err
	}
	s.hub.Broadcast(order.UserID, websocket.Update{Kind: "balance", Balance: balance})
	zap.L().Info("recharge order paid",
		zap.String("order_no", orderNo),
		zap.Int64("balance", balance))
	return RechargeResult{
		OrderNo: order.OrderNo,
		Amount:  order.Amount,
		Points:  order.Points,
		Channel: order.Channel,
		Status:  models.OrderPaid,
		Balance: balance,
	}, nil
}

func (s *RechargeService) result(ctx context.Context, order models.RechargeOrder, status string) (RechargeResult, error) {
	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		return RechargeResult{}, err
	}
	return RechargeResult{
		OrderNo: order.OrderNo,
		Amount:  order.Amount,
		Points:  order.Points,
		Channel: order.Channel,
		Status:  status,
		Balance: user.Balance,
	}, nil
}

// OrderStatus returns an order scoped to its owner.
func (s *RechargeService) OrderStatus(ctx context.Context, userID, orderNo string) (models.RechargeOrder, error) {
	order, err := s.orders.GetForUser(ctx, orderNo, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.RechargeOrder{}, ErrOrderNotFound
		}
		return models.RechargeOrder{}, err
	}
	return order, nil
}
