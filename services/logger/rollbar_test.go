package logsvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/studybuddy/core/user"
)

func TestRollbarLogger_fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	usr := user.User{ID: "usr-1", Username: "awe"}
	logger.Error("saving profile", errors.New("boom"), usr, map[string]interface{}{"attempt": 2})
	logger.Info("started")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "saving profile", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "usr-1", ctx["userId"])
	assert.Equal(t, "awe", ctx["username"])
	assert.EqualValues(t, 2, ctx["attempt"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}
