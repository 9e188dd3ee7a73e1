package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSugarBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Sugar().Debugw("not initialized yet", "k", "v")
	})
}

func TestConfigure(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, Configure("debug", "prod"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Configure("", "prod"))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.False(t, Logger.Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Configure("loud", "prod"))
}

func TestConfigureFallsBackToEnvironment(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, Configure("", "dev"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.NoError(t, Configure("warn", "dev"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestEnvironmentLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"dev":     zerolog.DebugLevel,
		"TEST":    zerolog.DebugLevel,
		"prod":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"staging": zerolog.InfoLevel,
	}
	for env, want := range cases {
		assert.Equal(t, want, EnvironmentLevel(env), env)
	}
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevel(zerolog.TraceLevel))
	assert.Equal(t, zapcore.WarnLevel, zapLevel(zerolog.WarnLevel))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(zerolog.NoLevel))
}
