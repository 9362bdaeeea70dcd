package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	t.Run("text debug", func(t *testing.T) {
		err := Configure("debug", "text")
		assert.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
		assert.IsType(t, &logrus.TextFormatter{}, Log.Formatter)
	})

	t.Run("json default", func(t *testing.T) {
		err := Configure("warn", "")
		assert.NoError(t, err)
		assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, Log.Formatter)
	})

	t.Run("bad level", func(t *testing.T) {
		assert.Error(t, Configure("loud", "json"))
	})

	t.Run("bad format", func(t *testing.T) {
		assert.Error(t, Configure("info", "xml"))
	})

	Init()
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
