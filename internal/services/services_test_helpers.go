package services

import (
	"context"

	"vidtrans/internal/models"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubUserStore struct {
	getForUpdateFn  func(ctx context.Context, tx store.Getter, userID string) (models.User, error)
	updateBalanceFn func(ctx context.Context, tx store.Execer, userID string, balance int64) error
}

func (s stubUserStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.User, error) {
	return s.getForUpdateFn(ctx, tx, userID)
}

func (s stubUserStore) UpdateBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, userID, balance)
}

type stubLedgerStore struct {
	insertFn func(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error
}

func (s stubLedgerStore) Insert(ctx context.Context, tx store.Execer, entry store.LedgerEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, entry)
}

type recordingHub struct {
	updates map[string][]websocket.Update
}

func newRecordingHub() *recordingHub {
	return &recordingHub{updates: make(map[string][]websocket.Update)}
}

func (h *recordingHub) Broadcast(userID string, update websocket.Update) {
	h.updates[userID] = append(h.updates[userID], update)
}

// memoryLedger backs a LedgerService with an in-memory account so tests can
// replay a sequence of mutations and check conservation.
type memoryLedger struct {
	balance int64
	entries []store.LedgerEntryInput
}

func (m *memoryLedger) userStore() stubUserStore {
	return stubUserStore{
		getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.User, error) {
			return models.User{ID: userID, Balance: m.balance}, nil
		},
		updateBalanceFn: func(_ context.Context, _ store.Execer, _ string, balance int64) error {
			m.balance = balance
			return nil
		},
	}
}

func (m *memoryLedger) ledgerStore() stubLedgerStore {
	return stubLedgerStore{
		insertFn: func(_ context.Context, _ store.Execer, entry store.LedgerEntryInput) error {
			m.entries = append(m.entries, entry)
			return nil
		},
	}
}

type stubProjectStore struct {
	createFn           func(ctx context.Context, tx store.Execer, input store.ProjectInput) error
	getByIDFn          func(ctx context.Context, projectID string) (models.Project, error)
	getForUpdateFn     func(ctx context.Context, tx store.Getter, projectID, userID string) (models.Project, error)
	getForCompletionFn func(ctx context.Context, tx store.Getter, projectID string) (models.Project, error)
	updateLangsFn      func(ctx context.Context, tx store.Execer, projectID string, languages []string, cost int64) error
	updateStatusFn     func(ctx context.Context, tx store.Execer, projectID, status string) error
}

func (s stubProjectStore) Create(ctx context.Context, tx store.Execer, input store.ProjectInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubProjectStore) GetByID(ctx context.Context, projectID string) (models.Project, error) {
	if s.getByIDFn == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.getByIDFn(ctx, projectID)
}

func (s stubProjectStore) GetForUpdate(ctx context.Context, tx store.Getter, projectID, userID string) (models.Project, error) {
	return s.getForUpdateFn(ctx, tx, projectID, userID)
}

func (s stubProjectStore) GetForCompletion(ctx context.Context, tx store.Getter, projectID string) (models.Project, error) {
	if s.getForCompletionFn == nil {
		return models.Project{ID: projectID}, nil
	}
	return s.getForCompletionFn(ctx, tx, projectID)
}

func (s stubProjectStore) UpdateLanguagesAndCost(ctx context.Context, tx store.Execer, projectID string, languages []string, cost int64) error {
	if s.updateLangsFn == nil {
		return nil
	}
	return s.updateLangsFn(ctx, tx, projectID, languages, cost)
}

func (s stubProjectStore) UpdateStatus(ctx context.Context, tx store.Execer, projectID, status string) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, projectID, status)
}

type stubTaskWriter struct {
	createFn func(ctx context.Context, tx store.Execer, projectID string, languages []string) error
}

func (s stubTaskWriter) CreateForProject(ctx context.Context, tx store.Execer, projectID string, languages []string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, projectID, languages)
}

type stubProber struct {
	duration int64
	err      error
}

func (s stubProber) Duration(_ context.Context, _ string) (int64, error) {
	return s.duration, s.err
}

type stubTaskStore struct {
	claimNextFn func(ctx context.Context) (*store.ClaimedTask, error)
	completeFn  func(ctx context.Context, tx store.Tx, taskID string, outcome store.Outcome) (bool, error)
}

func (s stubTaskStore) ClaimNext(ctx context.Context) (*store.ClaimedTask, error) {
	return s.claimNextFn(ctx)
}

func (s stubTaskStore) Complete(ctx context.Context, tx store.Tx, taskID string, outcome store.Outcome) (bool, error) {
	return s.completeFn(ctx, tx, taskID, outcome)
}

type stubOrchestrator struct {
	onCompletedFn func(ctx context.Context, tx *sqlx.Tx, taskID string, success bool) (CompletionEffect, error)
	broadcasts    []CompletionEffect
}

func (s *stubOrchestrator) OnTaskCompletedTx(ctx context.Context, tx *sqlx.Tx, taskID string, success bool) (CompletionEffect, error) {
	if s.onCompletedFn == nil {
		return CompletionEffect{ProjectID: taskID}, nil
	}
	return s.onCompletedFn(ctx, tx, taskID, success)
}

func (s *stubOrchestrator) BroadcastCompletion(effect CompletionEffect) {
	s.broadcasts = append(s.broadcasts, effect)
}

type stubRechargeStore struct {
	createFn       func(ctx context.Context, input store.RechargeOrderInput) error
	getByOrderNoFn func(ctx context.Context, orderNo string) (models.RechargeOrder, error)
	getForUserFn   func(ctx context.Context, orderNo, userID string) (models.RechargeOrder, error)
	markPaidFn     func(ctx context.Context, tx store.Execer, orderNo string) (bool, error)
	markFailedFn   func(ctx context.Context, orderNo, reason string) error
}

func (s stubRechargeStore) Create(ctx context.Context, input store.RechargeOrderInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, input)
}

func (s stubRechargeStore) GetByOrderNo(ctx context.Context, orderNo string) (models.RechargeOrder, error) {
	return s.getByOrderNoFn(ctx, orderNo)
}

func (s stubRechargeStore) GetForUser(ctx context.Context, orderNo, userID string) (models.RechargeOrder, error) {
	return s.getForUserFn(ctx, orderNo, userID)
}

func (s stubRechargeStore) MarkPaid(ctx context.Context, tx store.Execer, orderNo string) (bool, error) {
	if s.markPaidFn == nil {
		return true, nil
	}
	return s.markPaidFn(ctx, tx, orderNo)
}

func (s stubRechargeStore) MarkFailed(ctx context.Context, orderNo, reason string) error {
	if s.markFailedFn == nil {
		return nil
	}
	return s.markFailedFn(ctx, orderNo, reason)
}

type stubUserReader struct {
	getByIDFn func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserReader) GetByID(ctx context.Context, userID string) (models.User, error) {
	return s.getByIDFn(ctx, userID)
}
