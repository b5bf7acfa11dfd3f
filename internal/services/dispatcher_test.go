package services

import (
	"context"
	"errors"
	"testing"

	"vidtrans/internal/queue"
	"vidtrans/internal/store"

	"github.com/jmoiron/sqlx"
)

type stubPublisher struct {
	published []queue.TaskDescriptor
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, task queue.TaskDescriptor) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, task)
	return nil
}

func TestDispatcherPollEmptyQueue(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		claimNextFn: func(_ context.Context) (*store.ClaimedTask, error) {
			return nil, nil
		},
	}
	d := NewDispatcher(fakeTxRunner{}, tasks, &stubOrchestrator{}, nil)
	task, err := d.Poll(ctx)
	if err != nil {
		t.Fatalf("empty queue must not error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task, got %#v", task)
	}
}

func TestDispatcherPollPublishesClaim(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		claimNextFn: func(_ context.Context) (*store.ClaimedTask, error) {
			return &store.ClaimedTask{ID: "task-1", ProjectID: "task-1", VideoURL: "/uploads/a.mp4"}, nil
		},
	}
	publisher := &stubPublisher{}
	d := NewDispatcher(fakeTxRunner{}, tasks, &stubOrchestrator{}, publisher)
	task, err := d.Poll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task == nil || task.ID != "task-1" {
		t.Fatalf("unexpected task: %#v", task)
	}
	if len(publisher.published) != 1 || publisher.published[0].TaskID != "task-1" {
		t.Fatalf("unexpected publishes: %#v", publisher.published)
	}
}

func TestDispatcherPollToleratesPublishFailure(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		claimNextFn: func(_ context.Context) (*store.ClaimedTask, error) {
			return &store.ClaimedTask{ID: "task-1"}, nil
		},
	}
	d := NewDispatcher(fakeTxRunner{}, tasks, &stubOrchestrator{}, &stubPublisher{err: errors.New("redis down")})
	task, err := d.Poll(ctx)
	if err != nil {
		t.Fatalf("publish failure must not fail the poll: %v", err)
	}
	if task == nil || task.ID != "task-1" {
		t.Fatalf("unexpected task: %#v", task)
	}
}

func TestDispatcherCompleteRunsOrchestration(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		completeFn: func(_ context.Context, _ store.Tx, taskID string, outcome store.Outcome) (bool, error) {
			if !outcome.Success {
				t.Fatalf("unexpected outcome: %#v", outcome)
			}
			return true, nil
		},
	}
	orchestrator := &stubOrchestrator{
		onCompletedFn: func(_ context.Context, _ *sqlx.Tx, taskID string, success bool) (CompletionEffect, error) {
			return CompletionEffect{UserID: "user-1", ProjectID: taskID, Status: "completed"}, nil
		},
	}
	d := NewDispatcher(fakeTxRunner{}, tasks, orchestrator, nil)
	if err := d.Complete(ctx, "task-1", store.Outcome{Success: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orchestrator.broadcasts) != 1 || orchestrator.broadcasts[0].ProjectID != "task-1" {
		t.Fatalf("unexpected broadcasts: %#v", orchestrator.broadcasts)
	}
}

func TestDispatcherCompleteRedeliveryIsNoOp(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		completeFn: func(_ context.Context, _ store.Tx, _ string, _ store.Outcome) (bool, error) {
			return false, nil
		},
	}
	orchestrator := &stubOrchestrator{
		onCompletedFn: func(_ context.Context, _ *sqlx.Tx, _ string, _ bool) (CompletionEffect, error) {
			t.Fatal("redelivery must not re-run orchestration")
			return CompletionEffect{}, nil
		},
	}
	d := NewDispatcher(fakeTxRunner{}, tasks, orchestrator, nil)
	if err := d.Complete(ctx, "task-1", store.Outcome{Success: false, Error: "boom"}); err != nil {
		t.Fatalf("redelivery must be acknowledged: %v", err)
	}
	if len(orchestrator.broadcasts) != 0 {
		t.Fatalf("redelivery must not broadcast: %#v", orchestrator.broadcasts)
	}
}

func TestDispatcherCompleteUnknownTask(t *testing.T) {
	ctx := context.Background()
	tasks := stubTaskStore{
		completeFn: func(_ context.Context, _ store.Tx, _ string, _ store.Outcome) (bool, error) {
			return false, store.ErrNotFound
		},
	}
	d := NewDispatcher(fakeTxRunner{}, tasks, &stubOrchestrator{}, nil)
	if err := d.Complete(ctx, "missing", store.Outcome{Success: true}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}
