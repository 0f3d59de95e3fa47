package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/go-task-api/internal/models"
	"github.com/taskdeck/go-task-api/internal/tasks"
)

// defines methods for task db operations, all scoped to an owner
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, ownerID, taskID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, query tasks.ListQuery) ([]*models.Task, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, patch *tasks.Patch) (*models.Task, error)
	SetStatus(ctx context.Context, ownerID, taskID uuid.UUID, status models.Status) (*models.Task, error)
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error
}

const taskColumns = `id, owner_id, title, description, deadline, completion_date,
 priority, status, category, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(row taskScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.OwnerID, &task.Title, &task.Description,
		&task.Deadline, &task.CompletionDate, &task.Priority, &task.Status,
		&task.Category, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.OwnerID, task.Title, task.Description,
		task.Deadline, task.CompletionDate, task.Priority, task.Status,
		task.Category, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetByID returns ErrTaskNotFound both for a missing id and for an id
// owned by another user; callers cannot tell the two apart.
func (r *TaskRepository) GetByID(ctx context.Context, ownerID, taskID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, taskID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context, ownerID uuid.UUID, q tasks.ListQuery) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}

	if q.Status != nil {
		args = append(args, *q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.Priority != nil {
		args = append(args, *q.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if q.Category != nil {
		args = append(args, *q.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if q.SortField != "" {
		// SortField comes from the query builder's closed whitelist,
		// never straight from user input
		direction := "ASC"
		if q.SortDesc {
			direction = "DESC"
		}
		query += " ORDER BY " + q.SortField + " " + direction
	} else {
		query += " ORDER BY created_at DESC"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update runs the lifecycle engine inside a transaction. The write is
// guarded on the status observed by the read, so of two concurrent
// transitions on the same task exactly one wins and the other gets a
// conflict.
func (r *TaskRepository) Update(ctx context.Context, ownerID, taskID uuid.UUID, patch *tasks.Patch) (*models.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	current, err := scanTask(tx.QueryRowContext(ctx, query, taskID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	updated, err := tasks.ApplyPatch(*current, patch, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE tasks
	 SET title = $1, description = $2, deadline = $3, completion_date = $4,
	     priority = $5, status = $6, category = $7, updated_at = $8
	 WHERE id = $9 AND owner_id = $10 AND status = $11`,
		updated.Title, updated.Description, updated.Deadline,
		updated.CompletionDate, updated.Priority, updated.Status,
		updated.Category, updated.UpdatedAt,
		taskID, ownerID, current.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &models.ConflictError{Reason: "task was modified concurrently"}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetStatus is Update with a status-only patch.
func (r *TaskRepository) SetStatus(ctx context.Context, ownerID, taskID uuid.UUID, status models.Status) (*models.Task, error) {
	return r.Update(ctx, ownerID, taskID, &tasks.Patch{Status: &status})
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, taskID, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrTaskNotFound
	}
	return nil
}
