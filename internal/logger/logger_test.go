// internal/logger/logger_test.go
package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestWithFlow(t *testing.T) {
	l, logs := observed()
	l.WithFlow("send").Info("submitting")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "send", fields["flow"])
	assert.NotEmpty(t, fields["correlation_id"])
	assert.Contains(t, fields, "start_time")
}

func TestWithFlowFreshCorrelationID(t *testing.T) {
	l, logs := observed()
	l.WithFlow("swap").Info("first")
	l.WithFlow("swap").Info("second")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotEqual(t,
		entries[0].ContextMap()["correlation_id"],
		entries[1].ContextMap()["correlation_id"])
}

func TestWithTransaction(t *testing.T) {
	l, logs := observed()
	l.WithTransaction("abc123").Info("confirmed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "abc123", fields["tx_hash"])
	assert.Contains(t, fields, "tx_time")
}

func TestWithAccount(t *testing.T) {
	l, logs := observed()
	l.WithAccount("GABC").Info("connected")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "GABC", logs.All()[0].ContextMap()["account"])
}
