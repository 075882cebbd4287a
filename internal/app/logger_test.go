package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codemate/codemate/pkg/logger"
)

func TestConfigureLoggingDefaultsToInfo(t *testing.T) {
	require.NoError(t, ConfigureLogging(""))

	log := logger.Logger()
	require.True(t, log.Core().Enabled(zap.InfoLevel))
	require.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestConfigureLoggingHonoursLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging("debug"))
	require.True(t, logger.Logger().Core().Enabled(zap.DebugLevel))
}

func TestConfigureLoggingFallsBackOnUnknownLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging("chatty"))

	log := logger.Logger()
	require.True(t, log.Core().Enabled(zap.InfoLevel))
	require.False(t, log.Core().Enabled(zap.DebugLevel))
}
