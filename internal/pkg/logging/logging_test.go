package logging_test

import (
	"testing"

	"cargotrust/internal/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("should honour level", func(t *testing.T) {
		logger, err := logging.New("warn", "json")

		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("should reject unknown level", func(t *testing.T) {
		_, err := logging.New("chatty", "json")

		require.Error(t, err)
	})
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	logging.Component(zap.New(core), "flatstore").Info("loaded")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "flatstore", logs.All()[0].ContextMap()["component"])
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		logging.Component(nil, "x").Info("dropped")
	})
}
