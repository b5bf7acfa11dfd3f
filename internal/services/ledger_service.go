package services

import (
	"context"
	"errors"

	"vidtrans/internal/db"
	"vidtrans/internal/models"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUserNotFound      = errors.New("user not found")
)

type UserStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error
}

type LedgerStore interface {
	Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
}

type UpdateBroadcaster interface {
	Broadcast(userID string, update websocket.Update)
}

// LedgerService is the only writer of user balances. Every mutation locks
// the user row, rewrites the balance cache, and appends exactly one ledger
// row whose balance_after snapshot equals the new balance. The service
// provides no idempotency key; callers dedupe retries.
type LedgerService struct {
	txRunner db.TxRunner
	users    UserStore
	ledger   LedgerStore
	hub      UpdateBroadcaster
}

func NewLedgerService(txRunner db.TxRunner, users UserStore, ledger LedgerStore, hub UpdateBroadcaster) *LedgerService {
	return &LedgerService{
		txRunner: txRunner,
		users:    users,
		ledger:   ledger,
		hub:      hub,
	}
}

// DebitTx runs the debit inside the caller's transaction so project creation
// and its charge commit or roll back together. Fails with
// ErrInsufficientFunds before any write when the balance cannot cover the
// amount; there is no partial debit.
func (s *LedgerService) DebitTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	user, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if user.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	newBalance := user.Balance - amount
	if err := s.users.UpdateBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
		ID:           uuid.NewString(),
		UserID:       userID,
		ProjectID:    projectID,
		Type:         models.TxTypeConsume,
		Amount:       -amount,
		BalanceAfter: newBalance,
		Description:  description,
	}); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// CreditTx mirrors DebitTx for recharge-type entries.
func (s *LedgerService) CreditTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	user, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	newBalance := user.Balance + amount
	if err := s.users.UpdateBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}
	if err := s.ledger.Insert(ctx, tx, store.LedgerEntryInput{
		ID:           uuid.NewString(),
		UserID:       userID,
		ProjectID:    projectID,
		Type:         models.TxTypeRecharge,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  description,
	}); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit is the standalone form: one debit, one transaction, balance pushed
// to the user's live connections after commit.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, projectID *string, description string) (int64, error) {
	var newBalance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		newBalance, err = s.DebitTx(ctx, tx, userID, amount, projectID, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.hub.Broadcast(userID, websocket.Update{Kind: "balance", Balance: newBalance})
	return newBalance, nil
}

// Credit is the standalone form of CreditTx.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, description string) (int64, error) {
	var newBalance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		newBalance, err = s.CreditTx(ctx, tx, userID, amount, nil, description)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.hub.Broadcast(userID, websocket.Update{Kind: "balance", Balance: newBalance})
	return newBalance, nil
}
