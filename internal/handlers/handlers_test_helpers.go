package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vidtrans/internal/auth"
	"vidtrans/internal/config"
	"vidtrans/internal/middleware"
	"vidtrans/internal/models"
	"vidtrans/internal/services"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn         func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, balance int64) error
	getByIDFn        func(ctx context.Context, userID string) (models.User, error)
	getByUsernameFn  func(ctx context.Context, username string) (models.User, error)
	getByEmailFn     func(ctx context.Context, email string) (models.User, error)
	touchLastLoginFn func(ctx context.Context, userID string, at time.Time) error
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, balance int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash, balance)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, store.ErrNotFound
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, store.ErrNotFound
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	if s.touchLastLoginFn == nil {
		return nil
	}
	return s.touchLastLoginFn(ctx, userID, at)
}

type stubSessionStore struct {
	createFn        func(ctx context.Context, id, userID, token string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (models.Session, error)
	deleteByTokenFn func(ctx context.Context, token string) error
}

func (s stubSessionStore) Create(ctx context.Context, id, userID, token string, expiresAt time.Time) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, id, userID, token, expiresAt)
}

func (s stubSessionStore) GetByToken(ctx context.Context, token string) (models.Session, error) {
	if s.getByTokenFn == nil {
		return models.Session{}, store.ErrNotFound
	}
	return s.getByTokenFn(ctx, token)
}

func (s stubSessionStore) DeleteByToken(ctx context.Context, token string) error {
	if s.deleteByTokenFn == nil {
		return nil
	}
	return s.deleteByTokenFn(ctx, token)
}

type stubProjectStore struct {
	getByOwnerFn func(ctx context.Context, projectID, userID string) (models.Project, error)
	listFn       func(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Project, int, error)
	updateNameFn func(ctx context.Context, projectID, userID, name string) error
	deleteFn     func(ctx context.Context, projectID, userID string) error
}

func (s stubProjectStore) GetByOwner(ctx context.Context, projectID, userID string) (models.Project, error) {
	if s.getByOwnerFn == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.getByOwnerFn(ctx, projectID, userID)
}

func (s stubProjectStore) List(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Project, int, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, userID, keyword, limit, offset)
}

func (s stubProjectStore) UpdateName(ctx context.Context, projectID, userID, name string) error {
	if s.updateNameFn == nil {
		return nil
	}
	return s.updateNameFn(ctx, projectID, userID, name)
}

func (s stubProjectStore) Delete(ctx context.Context, projectID, userID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, projectID, userID)
}

type stubTaskReader struct {
	getByProjectFn func(ctx context.Context, projectID string) (models.Task, error)
}

func (s stubTaskReader) GetByProject(ctx context.Context, projectID string) (models.Task, error) {
	if s.getByProjectFn == nil {
		return models.Task{}, store.ErrNotFound
	}
	return s.getByProjectFn(ctx, projectID)
}

type stubLedgerStore struct {
	listByUserFn  func(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	statsByUserFn func(ctx context.Context, userID string) (store.LedgerStats, error)
	sumByUserFn   func(ctx context.Context, userID string) (int64, error)
}

func (s stubLedgerStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, txType, limit, offset)
}

func (s stubLedgerStore) StatsByUser(ctx context.Context, userID string) (store.LedgerStats, error) {
	if s.statsByUserFn == nil {
		return store.LedgerStats{}, nil
	}
	return s.statsByUserFn(ctx, userID)
}

func (s stubLedgerStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	if s.sumByUserFn == nil {
		return 0, nil
	}
	return s.sumByUserFn(ctx, userID)
}

type stubLedgerService struct {
	creditTxFn func(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error)
}

func (s stubLedgerService) CreditTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error) {
	if s.creditTxFn == nil {
		return amount, nil
	}
	return s.creditTxFn(ctx, tx, userID, amount, projectID, description)
}

type stubProjectService struct {
	createProjectFn func(ctx context.Context, in services.CreateProjectInput) (services.CreateProjectResult, error)
	addLanguagesFn  func(ctx context.Context, projectID, userID string, languages []string) (models.Project, error)
}

func (s stubProjectService) CreateProject(ctx context.Context, in services.CreateProjectInput) (services.CreateProjectResult, error) {
	if s.createProjectFn == nil {
		return services.CreateProjectResult{}, nil
	}
	return s.createProjectFn(ctx, in)
}

func (s stubProjectService) AddLanguages(ctx context.Context, projectID, userID string, languages []string) (models.Project, error) {
	if s.addLanguagesFn == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.addLanguagesFn(ctx, projectID, userID, languages)
}

type stubDispatcher struct {
	pollFn     func(ctx context.Context) (*store.ClaimedTask, error)
	completeFn func(ctx context.Context, taskID string, outcome store.Outcome) error
}

func (s stubDispatcher) Poll(ctx context.Context) (*store.ClaimedTask, error) {
	if s.pollFn == nil {
		return nil, nil
	}
	return s.pollFn(ctx)
}

func (s stubDispatcher) Complete(ctx context.Context, taskID string, outcome store.Outcome) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, taskID, outcome)
}

type stubRechargeService struct {
	rechargeFn      func(ctx context.Context, userID string, amount decimal.Decimal, channel string) (services.RechargeResult, error)
	completeOrderFn func(ctx context.Context, orderNo string) (services.RechargeResult, error)
	orderStatusFn   func(ctx context.Context, userID, orderNo string) (models.RechargeOrder, error)
}

func (s stubRechargeService) Recharge(ctx context.Context, userID string, amount decimal.Decimal, channel string) (services.RechargeResult, error) {
	if s.rechargeFn == nil {
		return services.RechargeResult{}, nil
	}
	return s.rechargeFn(ctx, userID, amount, channel)
}

func (s stubRechargeService) CompleteOrder(ctx context.Context, orderNo string) (services.RechargeResult, error) {
	if s.completeOrderFn == nil {
		return services.RechargeResult{}, nil
	}
	return s.completeOrderFn(ctx, orderNo)
}

func (s stubRechargeService) OrderStatus(ctx context.Context, userID, orderNo string) (models.RechargeOrder, error) {
	if s.orderStatusFn == nil {
		return models.RechargeOrder{}, nil
	}
	return s.orderStatusFn(ctx, userID, orderNo)
}

type stubPinger struct {
	err error
}

func (s stubPinger) PingContext(context.Context) error {
	return s.err
}

type handlerDeps struct {
	database   stubPinger
	txRunner   fakeTxRunner
	users      stubUserStore
	sessions   stubSessionStore
	projects   stubProjectStore
	tasks      stubTaskReader
	ledger     stubLedgerStore
	ledgerSvc  stubLedgerService
	projectSvc stubProjectService
	dispatcher stubDispatcher
	recharge   stubRechargeService
}

func newTestHandler(deps handlerDeps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		RatePerMinute:  10,
		PointsPerUnit:  100,
		SignupBonus:    1000,
	}
	return New(deps.database, deps.txRunner, cfg, deps.users, deps.sessions, deps.projects, deps.tasks,
		deps.ledger, deps.ledgerSvc, deps.projectSvc, deps.dispatcher, deps.recharge, websocket.NewHub())
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}
