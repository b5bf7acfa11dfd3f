package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Task and project status values. Project status is a projection of the
// owning task's status; only the orchestrator writes it.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Ledger entry types.
const (
	TxTypeConsume  = "consume"
	TxTypeRecharge = "recharge"
)

// Recharge order states. Pending is the only state a transition may leave.
const (
	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Balance      int64      `db:"balance" json:"balance"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Project struct {
	ID              string         `db:"id" json:"id"`
	UserID          *string        `db:"user_id" json:"user_id,omitempty"`
	Name            string         `db:"name" json:"name"`
	Languages       pq.StringArray `db:"languages" json:"languages"`
	VideoURL        string         `db:"video_url" json:"video_url"`
	DurationSeconds int64          `db:"duration_seconds" json:"duration_seconds"`
	Cost            int64          `db:"cost" json:"cost"`
	Status          string         `db:"status" json:"status"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

type Task struct {
	ID                 string         `db:"id" json:"id"`
	ProjectID          string         `db:"project_id" json:"project_id"`
	Status             string         `db:"status" json:"status"`
	Languages          pq.StringArray `db:"languages" json:"languages"`
	CompletedLanguages pq.StringArray `db:"completed_languages" json:"completed_languages"`
	Translations       Translations   `db:"translations" json:"translations"`
	Error              *string        `db:"error" json:"error,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	StartedAt          *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

type Transaction struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ProjectID    *string   `db:"project_id" json:"project_id,omitempty"`
	Type         string    `db:"type" json:"type"`
	Amount       int64     `db:"amount" json:"amount"`
	BalanceAfter int64     `db:"balance_after" json:"balance_after"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type RechargeOrder struct {
	OrderNo   string          `db:"order_no" json:"order_no"`
	UserID    string          `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Points    int64           `db:"points" json:"points"`
	Channel   string          `db:"channel" json:"channel"`
	Status    string          `db:"status" json:"status"`
	Error     *string         `db:"error" json:"error,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	PaidAt    *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// Translations maps a language code to the translated output URL. Stored as
// jsonb.
type Translations map[string]string

func (t Translations) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func (t *Translations) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return errors.New("unsupported translations source")
	}
}
