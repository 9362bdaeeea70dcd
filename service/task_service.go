package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-manager-api/logger"
	"task-manager-api/model"
	"task-manager-api/repository"

	"github.com/sirupsen/logrus"
)

const (
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

// TaskService handles task business rules.
type TaskService struct {
	tasks repository.ITaskRepository
	users repository.IUserRepository
	now   func() time.Time
}

func NewTaskService(tasks repository.ITaskRepository, users repository.IUserRepository) *TaskService {
	return &TaskService{tasks: tasks, users: users, now: time.Now}
}

type CreateTaskInput struct {
	Title          string
	Description    string
	DueDate        time.Time
	Priority       string
	AssignedUserID int
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
type UpdateTaskInput struct {
	Title           *string
	Description     *string
	DueDate         *time.Time
	Priority        *string
	Status          *string
	RescheduledDate *time.Time
}

func validateText(title, description string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return validationError("title", "is required")
	case len(title) > maxTitleLength:
		return validationError("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	case len(description) > maxDescriptionLength:
		return validationError("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}
	return nil
}

// Create stores a new task on behalf of actor. The due date must lie in the future.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, actor string) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if err := validateText(title, in.Description); err != nil {
		return nil, err
	}
	if !in.DueDate.After(s.now()) {
		return nil, validationError("due_date", "must be in the future")
	}
	priority, err := model.ParseTaskPriority(in.Priority)
	if err != nil {
		return nil, validationError("priority", err.Error())
	}

	if _, err := s.users.GetByID(ctx, in.AssignedUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError("assigned_user_id", "does not exist")
		}
		return nil, fmt.Errorf("load assigned user: %w", err)
	}

	task := &model.Task{
		Title:          title,
		Description:    in.Description,
		DueDate:        in.DueDate.UTC(),
		Priority:       priority,
		Status:         model.StatusNew,
		AssignedUserID: in.AssignedUserID,
		LastUpdatedBy:  actor,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError("assigned_user_id", "does not exist")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"task_id":          task.ID,
		"assigned_user_id": task.AssignedUserID,
		"actor":            actor,
	}).Info("Task created")
	return s.Get(ctx, task.ID)
}

func (s *TaskService) Get(ctx context.Context, id int) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	return tasks, nil
}

// Update applies a partial update. Moving to Completed stamps CompletedAt once;
// moving away from Completed clears it.
func (s *TaskService) Update(ctx context.Context, id int, in UpdateTaskInput, actor string) (*model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if err := validateText(task.Title, task.Description); err != nil {
		return nil, err
	}
	if in.DueDate != nil {
		if !in.DueDate.After(s.now()) {
			return nil, validationError("due_date", "must be in the future")
		}
		task.DueDate = in.DueDate.UTC()
	}
	if in.RescheduledDate != nil {
		r := in.RescheduledDate.UTC()
		task.RescheduledDate = &r
	}
	if in.Priority != nil {
		p, err := model.ParseTaskPriority(*in.Priority)
		if err != nil {
			return nil, validationError("priority", err.Error())
		}
		task.Priority = p
	}
	if in.Status != nil {
		status, err := model.ParseTaskStatus(*in.Status)
		if err != nil {
			return nil, validationError("status", err.Error())
		}
		switch {
		case status == model.StatusCompleted && task.CompletedAt == nil:
			now := s.now().UTC()
			task.CompletedAt = &now
		case status != model.StatusCompleted:
			task.CompletedAt = nil
		}
		task.Status = status
	}
	task.LastUpdatedBy = actor

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	logger.Log.WithFields(logrus.Fields{"task_id": id, "actor": actor}).Info("Task updated")
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id int) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	logger.Log.WithField("task_id", id).Info("Task deleted")
	return nil
}
