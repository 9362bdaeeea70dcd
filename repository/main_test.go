package repository

import (
	"os"
	"testing"

	"task-manager-api/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}
