// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-manager-api/config"
	"task-manager-api/db"
	"task-manager-api/handler"
	"task-manager-api/logger"
	"task-manager-api/repository"
	"task-manager-api/repository/memory"
	"task-manager-api/router"
	"task-manager-api/service"
)

// Stores groups the repositories the services are built on.
type Stores struct {
	Users  repository.IUserRepository
	Tokens repository.ITokenRepository
	Tasks  repository.ITaskRepository
}

// PostgresStores builds the SQL-backed repositories.
func PostgresStores(database *sql.DB) Stores {
	return Stores{
		Users:  repository.NewUserRepository(database),
		Tokens: repository.NewTokenRepository(database),
		Tasks:  repository.NewTaskRepository(database),
	}
}

// MemoryStores builds the in-process repositories.
func MemoryStores() Stores {
	store := memory.NewStore()
	return Stores{Users: store.Users(), Tokens: store.Tokens(), Tasks: store.Tasks()}
}

// App is the wired application.
type App struct {
	Router http.Handler
	Auth   *service.AuthService
	Tasks  *service.TaskService
	Tokens *service.TokenService
}

// New wires services, handlers and routes. cache may be nil.
func New(cfg *config.Config, stores Stores, cache service.ICacheClient) (*App, error) {
	tokens, err := service.NewTokenService(cfg.JWT)
	if err != nil {
		return nil, err
	}
	hasher, err := service.NewPasswordHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	authService := service.NewAuthService(stores.Users, stores.Tokens, tokens, hasher, cache, cfg.JWT.RevokeChainOnReuse)
	taskService := service.NewTaskService(stores.Tasks, stores.Users)

	proxies, err := handler.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	authHandler := handler.NewAuthHandler(authService, proxies)
	taskHandler := handler.NewTaskHandler(taskService)

	return &App{
		Router: router.NewRouter(authHandler, taskHandler, tokens),
		Auth:   authService,
		Tasks:  taskService,
		Tokens: tokens,
	}, nil
}

// Run loads configuration, connects the backing services and serves until
// SIGINT or SIGTERM.
func Run() {
	logger.Init()

	if err := config.LoadConfig("."); err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := config.AppConfig
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		logger.Log.WithError(err).Fatal("Failed to configure logger")
	}
	logger.Log.Info("Configuration loaded successfully")

	stores, closeStores, err := openStores(cfg.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Error connecting to the database")
	}
	defer closeStores()

	var cache service.ICacheClient
	if cfg.Redis.Enabled {
		rdb, err := db.ConnectRedis(context.Background(), cfg.Redis)
		if err != nil {
			logger.Log.WithError(err).Fatal("Error connecting to Redis")
		}
		defer rdb.Close()
		cache = rdb
	}

	application, err := New(&cfg, stores, cache)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build application")
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := application.Auth.SeedAdmin(seedCtx, cfg.Seed.AdminUsername, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		cancelSeed()
		logger.Log.WithError(err).Fatal("Failed to seed administrator")
	}
	cancelSeed()

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Log.Info("Server exited properly")
}

func openStores(cfg config.DatabaseConfig) (Stores, func(), error) {
	if cfg.Driver == "memory" {
		logger.Log.Warn("Using the in-memory store; data is lost on restart")
		return MemoryStores(), func() {}, nil
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return Stores{}, nil, err
	}
	if cfg.Migrate {
		if err := db.Migrate(database); err != nil {
			_ = database.Close()
			return Stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return PostgresStores(database), func() { _ = database.Close() }, nil
}
