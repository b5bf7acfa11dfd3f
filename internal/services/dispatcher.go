package services

import (
	"context"
	"errors"

	"vidtrans/internal/db"
	"vidtrans/internal/queue"
	"vidtrans/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskStore interface {
	ClaimNext(ctx context.Context) (*store.ClaimedTask, error)
	Complete(ctx context.Context, tx store.Tx, taskID string, outcome store.Outcome) (bool, error)
}

type Orchestrator interface {
	OnTaskCompletedTx(ctx context.Context, tx *sqlx.Tx, taskID string, success bool) (CompletionEffect, error)
	BroadcastCompletion(effect CompletionEffect)
}

// Dispatcher is the poll/complete boundary for the external worker pool.
// The queue publisher is an explicit optional dependency: nil means no
// durable queue is configured and polls are served synchronously only.
type Dispatcher struct {
	txRunner  db.TxRunner
	tasks     TaskStore
	projects  Orchestrator
	publisher queue.Publisher
}

func NewDispatcher(txRunner db.TxRunner, tasks TaskStore, projects Orchestrator, publisher queue.Publisher) *Dispatcher {
	return &Dispatcher{
		txRunner:  txRunner,
		tasks:     tasks,
		projects:  projects,
		publisher: publisher,
	}
}

// Poll claims the oldest pending task for the calling worker. A nil result
// with a nil error means the queue is empty. When a durable queue is
// configured the claimed task is also handed to it best-effort; a publish
// failure degrades to synchronous-only operation and never fails the poll.
func (d *Dispatcher) Poll(ctx context.Context) (*store.ClaimedTask, error) {
	task, err := d.tasks.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	if d.publisher != nil {
		descriptor := queue.TaskDescriptor{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			VideoURL:  task.VideoURL,
			Languages: task.Languages,
		}
		if err := d.publisher.Publish(ctx, descriptor); err != nil {
			zap.L().Warn("queue publish failed, serving poll without handoff",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	}
	return task, nil
}

// Complete applies the worker's outcome. The task transition and the project
// projection commit together. Redelivery of an outcome for an already
// terminal task is acknowledged without changing anything; the first
// delivery wins.
func (d *Dispatcher) Complete(ctx context.Context, taskID string, outcome store.Outcome) error {
	var effect CompletionEffect
	var transitioned bool
	err := d.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		transitioned, err = d.tasks.Complete(ctx, tx, taskID, outcome)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		if !transitioned {
			return nil
		}
		effect, err = d.projects.OnTaskCompletedTx(ctx, tx, taskID, outcome.Success)
		return err
	})
	if err != nil {
		return err
	}
	if transitioned {
		d.projects.BroadcastCompletion(effect)
	}
	return nil
}
