package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func resetFlags(t *testing.T, args ...string) *options {
	t.Helper()
	old := flag.CommandLine
	t.Cleanup(func() { flag.CommandLine = old })
	flag.CommandLine = flag.NewFlagSet("openssl-go", flag.ContinueOnError)
	opts := &options{}
	flag.BoolVar(&opts.json, "json", false, "")
	flag.StringVar(&opts.level, "log-level", "warn", "")
	flag.StringVar(&opts.configFile, "conf", "", "")
	require.NoError(t, flag.CommandLine.Parse(args))
	return opts
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(envLogJSON, "true")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envConfigFile, "/etc/ssl/openssl.cnf")

	opts := resetFlags(t)
	require.NoError(t, applyEnv(opts))
	assert.True(t, opts.json)
	assert.Equal(t, "debug", opts.level)
	assert.Equal(t, "/etc/ssl/openssl.cnf", opts.configFile)
}

func TestFlagsBeatEnv(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogJSON, "true")

	opts := resetFlags(t, "-log-level", "error", "-json=false")
	require.NoError(t, applyEnv(opts))
	assert.False(t, opts.json)
	assert.Equal(t, "error", opts.level)
}

func TestApplyEnvRejectsBadBool(t *testing.T) {
	t.Setenv(envLogJSON, "sometimes")
	opts := resetFlags(t)
	assert.Error(t, applyEnv(opts))
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(options{level: "INFO", json: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger(options{level: "loud"})
	assert.Error(t, err)
}
