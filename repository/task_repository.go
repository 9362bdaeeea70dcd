package repository

import (
	"context"
	"database/sql"
	"errors"

	"task-manager-api/logger"
	"task-manager-api/model"

	"github.com/sirupsen/logrus"
)

// ITaskRepository defines the contract for task persistence.
type ITaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int) (*model.Task, error)
	List(ctx context.Context) ([]*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id int) error
}

// TaskRepository implements ITaskRepository.
type TaskRepository struct {
	DB *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

const selectTaskQuery = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status, t.assigned_user_id, u.username,
		t.created_at, t.completed_at, t.rescheduled_date, t.last_updated_by, t.last_updated_at
	FROM tasks t
	JOIN users u ON u.id = t.assigned_user_id`

func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var (
		t                        model.Task
		priority, status         string
		completedAt, rescheduled sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &priority, &status, &t.AssignedUserID,
		&t.AssignedUsername, &t.CreatedAt, &completedAt, &rescheduled, &t.LastUpdatedBy, &t.LastUpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = model.TaskPriority(priority)
	t.Status = model.TaskStatus(status)
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	if rescheduled.Valid {
		r := rescheduled.Time
		t.RescheduledDate = &r
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	log := logger.Log.WithFields(logrus.Fields{
		"assigned_user_id": task.AssignedUserID,
		"priority":         task.Priority,
	})
	log.Info("Executing query to create a new task")

	query := `INSERT INTO tasks (title, description, due_date, priority, status, assigned_user_id, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, last_updated_at`
	err := r.DB.QueryRowContext(ctx, query, task.Title, task.Description, task.DueDate, string(task.Priority),
		string(task.Status), task.AssignedUserID, task.LastUpdatedBy).
		Scan(&task.ID, &task.CreatedAt, &task.LastUpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create task query")
		return err
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id int) (*model.Task, error) {
	task, err := scanTask(r.DB.QueryRowContext(ctx, selectTaskQuery+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("task_id", id).Error("Failed to execute get task query")
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]*model.Task, error) {
	logger.Log.Info("Executing query to list tasks")

	rows, err := r.DB.QueryContext(ctx, selectTaskQuery+` ORDER BY t.due_date, t.id`)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute list tasks query")
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to scan task row")
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update writes every mutable column and refreshes LastUpdatedAt.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	log := logger.Log.WithFields(logrus.Fields{
		"task_id":         task.ID,
		"last_updated_by": task.LastUpdatedBy,
	})
	log.Info("Executing query to update a task")

	query := `UPDATE tasks SET title = $1, description = $2, due_date = $3, priority = $4, status = $5,
			completed_at = $6, rescheduled_date = $7, last_updated_by = $8, last_updated_at = NOW()
		WHERE id = $9 RETURNING last_updated_at`
	err := r.DB.QueryRowContext(ctx, query, task.Title, task.Description, task.DueDate, string(task.Priority),
		string(task.Status), task.CompletedAt, task.RescheduledDate, task.LastUpdatedBy, task.ID).
		Scan(&task.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		log.WithError(err).Error("Failed to execute update task query")
		return err
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	log := logger.Log.WithField("task_id", id)
	log.Info("Executing query to delete a task")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute delete task query")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
