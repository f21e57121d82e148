package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hsiuhsiu/openssl-go/pkg/openssl/logging"
)

func TestSlogLoggerRedacts(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.With("conn", 7).Debug(context.Background(), "psk negotiated", logging.Redacted("identity"))

	out := buf.String()
	assert.Contains(t, out, "psk negotiated")
	assert.Contains(t, out, "conn=7")
	assert.Contains(t, out, "identity="+logging.Placeholder())
}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logging.NewZap(zap.New(core)).With("peer", "example.com")

	l.Warn(context.Background(), "host io failed", "bytes", 12, logging.Redacted("key"), zap.Bool("retry", true), "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "host io failed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "example.com", ctx["peer"])
	assert.EqualValues(t, 12, ctx["bytes"])
	assert.Equal(t, logging.Placeholder(), ctx["key"])
	assert.Equal(t, true, ctx["retry"])
	assert.Equal(t, "dangling", ctx["!BADKEY"])
}

func TestNop(t *testing.T) {
	l := logging.Nop().With("a", 1)
	l.Error(context.Background(), "dropped")
	assert.NotNil(t, logging.NewZap(nil))
}
