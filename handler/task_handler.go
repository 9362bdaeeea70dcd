package handler

import (
	"net/http"
	"strconv"

	"task-manager-api/common"
	"task-manager-api/model"
	"task-manager-api/service"
)

// TaskHandler holds dependencies for task handlers.
type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(s *service.TaskService) *TaskHandler {
	return &TaskHandler{service: s}
}

func pathID(r *http.Request, name string) (int, *common.AppError) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, common.NewAppError(http.StatusBadRequest, "Invalid "+name, err)
	}
	return id, nil
}

// CreateTask godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task body model.TaskCreateRequest true "Task details"
// @Success      201  {object}  model.Task
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	_, username, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}
	var req model.TaskCreateRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	task, err := h.service.Create(r.Context(), service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		Priority:       req.Priority,
		AssignedUserID: req.AssignedUserID,
	}, username)
	if err != nil {
		return mapServiceError(err, "Could not create task")
	}

	common.WriteJSON(w, http.StatusCreated, task)
	return nil
}

// ListTasks godoc
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Task
// @Failure      401  {object}  common.AppError "Unauthorized"
// @Router       /api/tasks [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) *common.AppError {
	tasks, err := h.service.List(r.Context())
	if err != nil {
		return mapServiceError(err, "Could not list tasks")
	}
	common.WriteJSON(w, http.StatusOK, tasks)
	return nil
}

// GetTask godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Success      200  {object}  model.Task
// @Failure      404  {object}  common.AppError "Task not found"
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}
	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		return mapServiceError(err, "Could not load task")
	}
	common.WriteJSON(w, http.StatusOK, task)
	return nil
}

// UpdateTask godoc
// @Summary      Update a task
// @Description  Partial update; omitted fields are left unchanged.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Param        task body model.TaskUpdateRequest true "Fields to change"
// @Success      200  {object}  model.Task
// @Failure      400  {object}  common.AppError "Validation failed"
// @Failure      404  {object}  common.AppError "Task not found"
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}
	_, username, appErr := userFromContext(r)
	if appErr != nil {
		return appErr
	}
	var req model.TaskUpdateRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	task, err := h.service.Update(r.Context(), id, service.UpdateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		DueDate:         req.DueDate,
		Priority:        req.Priority,
		Status:          req.Status,
		RescheduledDate: req.RescheduledDate,
	}, username)
	if err != nil {
		return mapServiceError(err, "Could not update task")
	}
	common.WriteJSON(w, http.StatusOK, task)
	return nil
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Success      204
// @Failure      404  {object}  common.AppError "Task not found"
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return appErr
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		return mapServiceError(err, "Could not delete task")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
