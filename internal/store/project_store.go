package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vidtrans/internal/models"

	"github.com/lib/pq"
)

type ProjectStore struct {
	db DB
}

func NewProjectStore(db DB) *ProjectStore {
	return &ProjectStore{db: db}
}

type ProjectInput struct {
	ID              string
	UserID          *string
	Name            string
	Languages       []string
	VideoURL        string
	DurationSeconds int64
	Cost            int64
}

func (s *ProjectStore) Create(ctx context.Context, tx Execer, input ProjectInput) error {
	query := `
		INSERT INTO projects (id, user_id, name, languages, video_url, duration_seconds, cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.Name, pq.StringArray(input.Languages),
		input.VideoURL, input.DurationSeconds, input.Cost,
	)
	return err
}

// GetByOwner scopes the lookup to the owning user. Legacy rows with a NULL
// owner stay reachable by any authenticated caller, matching the source data.
func (s *ProjectStore) GetByOwner(ctx context.Context, projectID, userID string) (models.Project, error) {
	var row models.Project
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, languages, video_url, duration_seconds, cost, status, created_at, updated_at
		FROM projects
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)
	`, projectID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	return row, err
}

func (s *ProjectStore) GetByID(ctx context.Context, projectID string) (models.Project, error) {
	var row models.Project
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, languages, video_url, duration_seconds, cost, status, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	return row, err
}

// GetForUpdate locks the project row for a language/cost mutation.
func (s *ProjectStore) GetForUpdate(ctx context.Context, tx Getter, projectID, userID string) (models.Project, error) {
	var row models.Project
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, name, languages, video_url, duration_seconds, cost, status, created_at, updated_at
		FROM projects
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)
		FOR UPDATE
	`, projectID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	return row, err
}

// GetForCompletion locks the project row inside the task completion
// transaction. Not owner-scoped: the worker delivering the outcome is not the
// owner.
func (s *ProjectStore) GetForCompletion(ctx context.Context, tx Getter, projectID string) (models.Project, error) {
	var row models.Project
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, name, languages, video_url, duration_seconds, cost, status, created_at, updated_at
		FROM projects
		WHERE id = $1
		FOR UPDATE
	`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, ErrNotFound
	}
	return row, err
}

func (s *ProjectStore) List(ctx context.Context, userID, keyword string, limit, offset int) ([]models.Project, int, error) {
	var rows []models.Project
	query := `
		SELECT id, user_id, name, languages, video_url, duration_seconds, cost, status, created_at, updated_at
		FROM projects
		WHERE (user_id = $1 OR user_id IS NULL)
	`
	countQuery := `SELECT COUNT(*) FROM projects WHERE (user_id = $1 OR user_id IS NULL)`
	args := []any{userID}
	if keyword != "" {
		query += ` AND name ILIKE '%' || $2 || '%'`
		countQuery += ` AND name ILIKE '%' || $2 || '%'`
		args = append(args, keyword)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *ProjectStore) UpdateName(ctx context.Context, projectID, userID, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $1, updated_at = now()
		WHERE id = $2 AND (user_id = $3 OR user_id IS NULL)
	`, name, projectID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateLanguagesAndCost replaces the language set and total cost inside the
// transaction that debited the delta.
func (s *ProjectStore) UpdateLanguagesAndCost(ctx context.Context, tx Execer, projectID string, languages []string, cost int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET languages = $1, cost = $2, updated_at = now()
		WHERE id = $3
	`, pq.StringArray(languages), cost, projectID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateStatus mirrors the owning task's terminal status. Orchestrator only.
func (s *ProjectStore) UpdateStatus(ctx context.Context, tx Execer, projectID, status string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE projects
		SET status = $1, updated_at = now()
		WHERE id = $2
	`, status, projectID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *ProjectStore) Delete(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM projects
		WHERE id = $1 AND (user_id = $2 OR user_id IS NULL)
	`, projectID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
