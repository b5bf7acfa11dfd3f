package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidtrans/internal/models"

	"github.com/lib/pq"
)

type TaskStore struct {
	db DB
}

func NewTaskStore(db DB) *TaskStore {
	return &TaskStore{db: db}
}

// CreateForProject inserts the pending task paired 1:1 with a project. The
// task shares the project's id; a duplicate project surfaces as a unique
// violation.
func (s *TaskStore) CreateForProject(ctx context.Context, tx Execer, projectID string, languages []string) error {
	query := `
		INSERT INTO tasks (id, project_id, status, languages)
		VALUES ($1, $1, 'pending', $2)
	`
	_, err := tx.ExecContext(ctx, query, projectID, pq.StringArray(languages))
	return err
}

// ClaimedTask is the poll response payload: the claimed task plus the video
// reference the worker needs.
type ClaimedTask struct {
	ID        string         `db:"id"`
	ProjectID string         `db:"project_id"`
	Languages pq.StringArray `db:"languages"`
	VideoURL  string         `db:"video_url"`
	CreatedAt sql.NullTime   `db:"created_at"`
}

// ClaimNext atomically claims the oldest pending task and flips it to
// processing. The claim is a single conditional UPDATE; SKIP LOCKED keeps two
// concurrent pollers from ever receiving the same row. Returns (nil, nil)
// when no pending task exists. The join condition must stay on the subquery:
// the update target is not in scope inside the FROM list, and task id equals
// project id, so next.id is the project key too.
func (s *TaskStore) ClaimNext(ctx context.Context) (*ClaimedTask, error) {
	var row ClaimedTask
	err := s.db.GetContext(ctx, &row, `
		UPDATE tasks t
		SET status = 'processing', started_at = now()
		FROM (
			SELECT id
			FROM tasks
			WHERE status = 'pending'
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) next
		JOIN projects p ON p.id = next.id
		WHERE t.id = next.id
		RETURNING t.id, t.project_id, t.languages, p.video_url, t.created_at
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Outcome is the terminal result delivered by the worker.
type Outcome struct {
	Success      bool
	Translations models.Translations
	Error        string
}

// Complete transitions processing -> completed/failed. Completing a task that
// is already terminal is a no-op; the worker retries delivery and the first
// outcome wins. Returns ErrNotFound for an unknown task id.
func (s *TaskStore) Complete(ctx context.Context, tx Tx, taskID string, outcome Outcome) (bool, error) {
	var res sql.Result
	var err error
	if outcome.Success {
		langs := make([]string, 0, len(outcome.Translations))
		for lang := range outcome.Translations {
			langs = append(langs, lang)
		}
		res, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET status = 'completed', translations = $1, completed_languages = $2, completed_at = now()
			WHERE id = $3 AND status = 'processing'
		`, outcome.Translations, pq.StringArray(langs), taskID)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET status = 'failed', error = $1, completed_at = now()
			WHERE id = $2 AND status = 'processing'
		`, outcome.Error, taskID)
	}
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}
	// No transition happened: either the task is unknown or already terminal.
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, taskID); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (s *TaskStore) GetByID(ctx context.Context, taskID string) (models.Task, error) {
	var row models.Task
	err := s.db.GetContext(ctx, &row, `
		SELECT id, project_id, status, languages, completed_languages, translations, error, created_at, started_at, completed_at
		FROM tasks
		WHERE id = $1
	`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return row, err
}

func (s *TaskStore) GetByProject(ctx context.Context, projectID string) (models.Task, error) {
	var row models.Task
	err := s.db.GetContext(ctx, &row, `
		SELECT id, project_id, status, languages, completed_languages, translations, error, created_at, started_at, completed_at
		FROM tasks
		WHERE project_id = $1
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return row, err
}

// ReclaimStale returns tasks stuck in processing to pending so another poll
// can pick them up. Disabled unless the operator configures a threshold.
func (s *TaskStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'pending', started_at = NULL
		WHERE status = 'processing' AND started_at < now() - ($1 * interval '1 second')
	`, int64(olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
