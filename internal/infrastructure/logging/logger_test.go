package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty", OutputPaths: []string{"stdout"}})
	assert.Error(t, err)
}

func TestNewBuildsConfiguredLevel(t *testing.T) {
	logger, err := New(Config{Level: "warn", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestLeveledAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &Logger{Logger: zap.New(core)}

	leveled := logger.Leveled()
	leveled.Debug("performing request", "method", "GET", "url", "http://upstream/a.zip")
	leveled.Warn("retrying", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "performing request", entries[0].Message)
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestNamedAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := (&Logger{Logger: zap.New(core)}).Named("tree").With(zap.String("base", "http://x/"))

	logger.Info("crawl finished")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tree", entries[0].LoggerName)
	assert.Equal(t, "http://x/", entries[0].ContextMap()["base"])
}
