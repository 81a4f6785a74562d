package logging_test

import (
	"testing"

	"github.com/nais/deploystatus/pkg/logging"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	t.Run("json formatter and debug level", func(t *testing.T) {
		logger := log.New()
		err := logging.Configure(logger, "debug", "json")
		assert.NoError(t, err)
		assert.Equal(t, log.DebugLevel, logger.GetLevel())
		assert.IsType(t, &log.JSONFormatter{}, logger.Formatter)
	})

	t.Run("text formatter and warning level", func(t *testing.T) {
		logger := log.New()
		err := logging.Configure(logger, "warning", "text")
		assert.NoError(t, err)
		assert.Equal(t, log.WarnLevel, logger.GetLevel())
		assert.IsType(t, &log.TextFormatter{}, logger.Formatter)
	})

	t.Run("unknown format", func(t *testing.T) {
		logger := log.New()
		err := logging.Configure(logger, "info", "xml")
		assert.EqualError(t, err, "log format 'xml' is not recognized")
	})

	t.Run("unknown level leaves logger untouched", func(t *testing.T) {
		logger := log.New()
		logger.SetLevel(log.ErrorLevel)
		err := logging.Configure(logger, "loud", "text")
		assert.Error(t, err)
		assert.Equal(t, log.ErrorLevel, logger.GetLevel())
	})
}
