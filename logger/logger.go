// file: logger/logger.go

package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the application-wide structured logger.
var Log = logrus.New()

// Init installs the default JSON formatter at info level.
// It is safe to call more than once; tests call it from TestMain.
func Init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}

// Configure applies the level and format from configuration.
// Accepted formats are "json" and "text".
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	Log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "json":
		Log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}
