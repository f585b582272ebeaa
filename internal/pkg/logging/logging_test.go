package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Input    string
		Expected zapcore.Level
	}{
		{Input: "debug", Expected: zapcore.DebugLevel},
		{Input: " INFO ", Expected: zapcore.InfoLevel},
		{Input: "warn", Expected: zapcore.WarnLevel},
		{Input: "error", Expected: zapcore.ErrorLevel},
		{Input: "fatal", Expected: zapcore.FatalLevel},
		{Input: "-1", Expected: zapcore.DebugLevel},
		{Input: "2", Expected: zapcore.DPanicLevel},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.Input, func(t *testing.T) {
			level, err := ParseLevel(aTestCase.Input)
			require.NoError(t, err)
			assert.Equal(t, aTestCase.Expected, level)
		})
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Level: "bogus"})
	assert.Error(t, err)
}

func TestNew_WithFile(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "minidb.log")

	logger, err := New(Config{
		Level:      "debug",
		FileName:   fileName,
		MaxSize:    1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	logger.Debug("hello from test")
	logger.Sync()

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello from test"`)
	assert.Contains(t, string(data), `"severity":"DEBUG"`)
}

func TestOpen_CloseFlushesFile(t *testing.T) {
	t.Parallel()

	fileName := filepath.Join(t.TempDir(), "minidb.log")

	logger, closeLogger, err := Open(Config{
		Level:    "info",
		FileName: fileName,
		MaxSize:  1,
	})
	require.NoError(t, err)

	logger.Info("before close")
	require.NoError(t, closeLogger())

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"before close"`)
}

func TestOpen_WithoutFile(t *testing.T) {
	t.Parallel()

	logger, closeLogger, err := Open(Config{Level: "warn"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NoError(t, closeLogger())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "/tmp/minidb.log")

	conf := ConfigFromEnv()
	assert.Equal(t, "info", conf.Level)
	assert.Equal(t, "/tmp/minidb.log", conf.FileName)
	assert.Equal(t, 100, conf.MaxSize)
}
