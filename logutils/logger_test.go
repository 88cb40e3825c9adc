package logutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverrideRootLogWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "connector.log")

	err := OverrideRootLogWithConfig(LogSettings{
		Enabled: true,
		Level:   "DEBUG",
		File:    logFile,
		MaxSize: 1,
	})
	require.NoError(t, err)

	ZapLogger().Named("test").Debug("hello from the connector")
	require.NoError(t, ZapLogger().Sync())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello from the connector")
	require.Contains(t, string(data), "logutils/logger_test.go")
}

func TestOverrideRootLogWithInvalidLevel(t *testing.T) {
	err := OverrideRootLogWithConfig(LogSettings{Enabled: true, Level: "loud"})
	require.Error(t, err)
}

func TestDisabledLogging(t *testing.T) {
	require.NoError(t, OverrideRootLogWithConfig(LogSettings{}))
	require.NotNil(t, ZapLogger())
	ZapLogger().Error("dropped")
}
