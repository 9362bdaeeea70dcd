package service

import (
	"os"
	"testing"

	"task-manager-api/logger"
)

// TestMain runs setup before any tests in this package are executed.
func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}
