package db

import (
	"database/sql"
	"fmt"

	"task-manager-api/config"
	"task-manager-api/logger"

	_ "github.com/lib/pq"
)

// DSN builds the lib/pq connection string. When redact is set the password is omitted.
func DSN(cfg config.DatabaseConfig, redact bool) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	if redact {
		return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Name, sslMode)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode)
}

func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	logger.Log.WithField("connection", DSN(cfg, true)).Info("Attempting to connect to the database")

	db, err := sql.Open("postgres", DSN(cfg, false))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = db.Ping(); err != nil {
		logger.Log.WithError(err).Error("Failed to ping database")
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}
