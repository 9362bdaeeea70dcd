package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"task-manager-api/common"
	"task-manager-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHandler_CRUD(t *testing.T) {
	env := newTestEnv(t)
	h := NewTaskHandler(env.tasks)
	authed := func(fn func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return AuthMiddleware(env.tokens)(ErrorHandlingMiddleware(fn))
	}
	withID := func(req *http.Request, id int) *http.Request {
		req.SetPathValue("id", strconv.Itoa(id))
		return req
	}

	zoe := env.register(t, "zoe", model.RoleUser)
	due := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	rr := serve(authed(h.CreateTask), jsonRequest(t, http.MethodPost, "/api/tasks", model.TaskCreateRequest{
		Title: "Write release notes", DueDate: due, Priority: "high", AssignedUserID: zoe.User.ID,
	}, zoe.AccessToken))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var task model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &task))
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, "zoe", task.LastUpdatedBy)

	rr = serve(authed(h.CreateTask), jsonRequest(t, http.MethodPost, "/api/tasks", model.TaskCreateRequest{
		Title: "Too late", DueDate: time.Now().Add(-time.Hour), AssignedUserID: zoe.User.ID,
	}, zoe.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(authed(h.ListTasks), jsonRequest(t, http.MethodGet, "/api/tasks", nil, zoe.AccessToken))
	require.Equal(t, http.StatusOK, rr.Code)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 1)

	status := "Completed"
	rr = serve(authed(h.UpdateTask), withID(jsonRequest(t, http.MethodPut, "/api/tasks/x",
		model.TaskUpdateRequest{Status: &status}, zoe.AccessToken), task.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	var updated model.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	rr = serve(authed(h.GetTask), withID(jsonRequest(t, http.MethodGet, "/api/tasks/x", nil, zoe.AccessToken), task.ID))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(authed(h.DeleteTask), withID(jsonRequest(t, http.MethodDelete, "/api/tasks/x", nil, zoe.AccessToken), task.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(authed(h.GetTask), withID(jsonRequest(t, http.MethodGet, "/api/tasks/x", nil, zoe.AccessToken), task.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(authed(h.ListTasks), jsonRequest(t, http.MethodGet, "/api/tasks", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
