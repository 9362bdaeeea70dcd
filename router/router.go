package router

import (
	"net/http"

	"task-manager-api/common"
	"task-manager-api/handler"
	"task-manager-api/service"

	_ "task-manager-api/docs"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter registers every route. tokens backs the bearer middleware.
func NewRouter(authHandler *handler.AuthHandler, taskHandler *handler.TaskHandler, tokens *service.TokenService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if authHandler != nil {
		mux.Handle("POST /api/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
		mux.Handle("POST /api/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
		mux.Handle("POST /api/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	}

	if tokens == nil {
		return mux
	}
	authMiddleware := handler.AuthMiddleware(tokens)
	authed := func(h func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return authMiddleware(handler.ErrorHandlingMiddleware(h))
	}
	admin := func(h func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return authMiddleware(handler.AdminMiddleware(handler.ErrorHandlingMiddleware(h)))
	}

	if authHandler != nil {
		mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
		mux.Handle("POST /api/auth/logout-all", authed(authHandler.LogoutAll))

		mux.Handle("POST /api/auth/admin/create", admin(authHandler.CreateAdmin))
		mux.Handle("GET /api/auth/admin/users", admin(authHandler.ListUsers))
		mux.Handle("DELETE /api/auth/admin/users/{userId}", admin(authHandler.DeleteUser))
	}

	if taskHandler != nil {
		mux.Handle("POST /api/tasks", authed(taskHandler.CreateTask))
		mux.Handle("GET /api/tasks", authed(taskHandler.ListTasks))
		mux.Handle("GET /api/tasks/{id}", authed(taskHandler.GetTask))
		mux.Handle("PUT /api/tasks/{id}", authed(taskHandler.UpdateTask))
		mux.Handle("DELETE /api/tasks/{id}", authed(taskHandler.DeleteTask))
	}

	return mux
}
