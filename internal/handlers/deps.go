package handlers

import (
	"context"
	"time"

	"vidtrans/internal/models"
	"vidtrans/internal/services"
	"vidtrans/internal/store"

	"github.com/shopspring/decimal"
)

// Pinger is the readiness slice of *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, balance int64) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, id, userID, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

type ProjectStore interface {
	GetByOwner(ctx context.Context, projectID, userID string) (models.Project, error)
	List(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Project, int, error)
	UpdateName(ctx context.Context, projectID, userID, name string) error
	Delete(ctx context.Context, projectID, userID string) error
}

type TaskReader interface {
	GetByProject(ctx context.Context, projectID string) (models.Task, error)
}

type LedgerStore interface {
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	StatsByUser(ctx context.Context, userID string) (store.LedgerStats, error)
	SumByUser(ctx context.Context, userID string) (int64, error)
}

type LedgerService interface {
	CreditTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error)
}

type ProjectService interface {
	CreateProject(ctx context.Context, in services.CreateProjectInput) (services.CreateProjectResult, error)
	AddLanguages(ctx context.Context, projectID, userID string, languages []string) (models.Project, error)
}

type Dispatcher interface {
	Poll(ctx context.Context) (*store.ClaimedTask, error)
	Complete(ctx context.Context, taskID string, outcome store.Outcome) error
}

type RechargeService interface {
	Recharge(ctx context.Context, userID string, amount decimal.Decimal, channel string) (services.RechargeResult, error)
	CompleteOrder(ctx context.Context, orderNo string) (services.RechargeResult, error)
	OrderStatus(ctx context.Context, userID, orderNo string) (models.RechargeOrder, error)
}
