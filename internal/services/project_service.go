package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidtrans/internal/credits"
	"vidtrans/internal/db"
	"vidtrans/internal/models"
	"vidtrans/internal/probe"
	"vidtrans/internal/store"
	"vidtrans/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var ErrProjectNotFound = errors.New("project not found")

type ProjectStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ProjectInput) error
	GetByID(ctx context.Context, projectID string) (models.Project, error)
	GetForUpdate(ctx context.Context, tx store.Getter, projectID, userID string) (models.Project, error)
	GetForCompletion(ctx context.Context, tx store.Getter, projectID string) (models.Project, error)
	UpdateLanguagesAndCost(ctx context.Context, tx store.Execer, projectID string, languages []string, cost int64) error
	UpdateStatus(ctx context.Context, tx store.Execer, projectID, status string) error
}

type TaskWriter interface {
	CreateForProject(ctx context.Context, tx store.Execer, projectID string, languages []string) error
}

type Ledger interface {
	DebitTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error)
	CreditTx(ctx context.Context, tx store.Tx, userID string, amount int64, projectID *string, description string) (int64, error)
}

// ProjectPolicy carries the billing and failure-handling knobs.
type ProjectPolicy struct {
	RatePerMinute   int64
	DefaultDuration int64
	RefundOnFailure bool
}

// ProjectService ties project creation to the charge and the task, and task
// completion back to the project. The task's state machine is authoritative;
// the project status column is a projection written only here.
type ProjectService struct {
	txRunner db.TxRunner
	projects ProjectStore
	tasks    TaskWriter
	ledger   Ledger
	prober   probe.DurationProber
	hub      UpdateBroadcaster
	policy   ProjectPolicy
}

func NewProjectService(txRunner db.TxRunner, projects ProjectStore, tasks TaskWriter, ledger Ledger, prober probe.DurationProber, hub UpdateBroadcaster, policy ProjectPolicy) *ProjectService {
	return &ProjectService{
		txRunner: txRunner,
		projects: projects,
		tasks:    tasks,
		ledger:   ledger,
		prober:   prober,
		hub:      hub,
		policy:   policy,
	}
}

type CreateProjectInput struct {
	UserID    string
	Name      string
	Languages []string
	VideoPath string
	VideoURL  string
}

type CreateProjectResult struct {
	Project models.Project
	Balance int64
}

// CreateProject probes the video duration (probe failure is absorbed with
// the configured default), computes the cost, and debits the user, inserts
// the project and inserts its pending task as one transaction. Insufficient
// funds aborts with no rows written.
func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (CreateProjectResult, error) {
	duration := s.probeDuration(ctx, in.VideoPath)
	cost := credits.Cost(duration, s.policy.RatePerMinute, len(in.Languages))
	projectID := uuid.NewString()
	description := fmt.Sprintf("project %q: %s of video, %d languages",
		in.Name, credits.FormatDuration(duration), len(in.Languages))

	var balance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		balance, err = s.ledger.DebitTx(ctx, tx, in.UserID, cost, &projectID, description)
		if err != nil {
			return err
		}
		if err := s.projects.Create(ctx, tx, store.ProjectInput{
			ID:              projectID,
			UserID:          &in.UserID,
			Name:            in.Name,
			Languages:       in.Languages,
			VideoURL:        in.VideoURL,
			DurationSeconds: duration,
			Cost:            cost,
		}); err != nil {
			return err
		}
		return s.tasks.CreateForProject(ctx, tx, projectID, in.Languages)
	})
	if err != nil {
		return CreateProjectResult{}, err
	}
	s.hub.Broadcast(in.UserID, websocket.Update{Kind: "balance", Balance: balance})

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return CreateProjectResult{}, err
	}
	return CreateProjectResult{Project: project, Balance: balance}, nil
}

func (s *ProjectService) probeDuration(ctx context.Context, path string) int64 {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	duration, err := s.prober.Duration(probeCtx, path)
	if err != nil {
		zap.L().Warn("duration probe failed, using default",
			zap.String("path", path),
			zap.Int64("default_seconds", s.policy.DefaultDuration),
			zap.Error(err))
		return s.policy.DefaultDuration
	}
	return duration
}

// AddLanguages unions new languages into the project and charges only the
// set difference, priced from the stored duration_seconds. Re-adding already
// requested languages costs nothing and writes no ledger row.
func (s *ProjectService) AddLanguages(ctx context.Context, projectID, userID string, languages []string) (models.Project, error) {
	var charged int64
	var balance int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		project, err := s.projects.GetForUpdate(ctx, tx, projectID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		added := difference(languages, project.Languages)
		if len(added) == 0 {
			charged = 0
			return nil
		}
		charged = credits.Cost(project.DurationSeconds, s.policy.RatePerMinute, len(added))
		description := fmt.Sprintf("project %q: %d additional languages", project.Name, len(added))
		balance, err = s.ledger.DebitTx(ctx, tx, userID, charged, &projectID, description)
		if err != nil {
			return err
		}
		union := append(append([]string{}, project.Languages...), added...)
		return s.projects.UpdateLanguagesAndCost(ctx, tx, projectID, union, project.Cost+charged)
	})
	if err != nil {
		return models.Project{}, err
	}
	if charged > 0 {
		s.hub.Broadcast(userID, websocket.Update{Kind: "balance", Balance: balance})
	}
	return s.projects.GetByID(ctx, projectID)
}

// CompletionEffect reports what a task completion changed, so the caller can
// push updates after the transaction commits.
type CompletionEffect struct {
	UserID       string
	ProjectID    string
	Status       string
	RefundAmount int64
	Balance      int64
}

// OnTaskCompletedTx mirrors the task's terminal status onto the project and,
// when the refund policy is on, credits back the project cost on failure.
// Runs inside the dispatcher's completion transaction so the task flip and
// the projection stay atomic. The project is read through that same
// transaction with a row lock; a pooled read could race a concurrent
// AddLanguages and refund a stale cost.
func (s *ProjectService) OnTaskCompletedTx(ctx context.Context, tx *sqlx.Tx, taskID string, success bool) (CompletionEffect, error) {
	project, err := s.projects.GetForCompletion(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CompletionEffect{}, ErrProjectNotFound
		}
		return CompletionEffect{}, err
	}
	status := models.StatusCompleted
	if !success {
		status = models.StatusFailed
	}
	if err := s.projects.UpdateStatus(ctx, tx, taskID, status); err != nil {
		return CompletionEffect{}, err
	}
	effect := CompletionEffect{ProjectID: taskID, Status: status}
	if project.UserID != nil {
		effect.UserID = *project.UserID
	}
	if !success && s.policy.RefundOnFailure && project.Cost > 0 && project.UserID != nil {
		description := fmt.Sprintf("refund for failed project %q", project.Name)
		balance, err := s.ledger.CreditTx(ctx, tx, *project.UserID, project.Cost, &project.ID, description)
		if err != nil {
			return CompletionEffect{}, err
		}
		effect.RefundAmount = project.Cost
		effect.Balance = balance
	}
	return effect, nil
}

// BroadcastCompletion pushes the task status (and refund balance, if any) to
// the owner. Called after the completion transaction commits.
func (s *ProjectService) BroadcastCompletion(effect CompletionEffect) {
	if effect.UserID == "" {
		return
	}
	s.hub.Broadcast(effect.UserID, websocket.Update{
		Kind:      "task",
		ProjectID: effect.ProjectID,
		TaskID:    effect.ProjectID,
		Status:    effect.Status,
	})
	if effect.RefundAmount > 0 {
		s.hub.Broadcast(effect.UserID, websocket.Update{Kind: "balance", Balance: effect.Balance})
	}
}

// difference returns the members of langs not already in existing, keeping
// input order.
func difference(langs []string, existing []string) []string {
	present := make(map[string]struct{}, len(existing))
	for _, lang := range existing {
		present[lang] = struct{}{}
	}
	var added []string
	for _, lang := range langs {
		if _, ok := present[lang]; ok {
			continue
		}
		present[lang] = struct{}{}
		added = append(added, lang)
	}
	return added
}
