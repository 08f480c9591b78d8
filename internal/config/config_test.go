package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, JudgeModeStub, cfg.JudgeMode)
	assert.Equal(t, 0.002, cfg.ImpactMax)
	assert.Equal(t, 4.0, cfg.ImpactSteepness)
	assert.Equal(t, "softmax", cfg.SignalNormalization)
	assert.Equal(t, 1.0, cfg.SignalTemperature)
	assert.Equal(t, 1.0, cfg.LotSize)
}

func TestLoadRemoteModeRequiresEndpoint(t *testing.T) {
	t.Setenv("JUDGE_MODE", "remote")

	_, err := Load()
	assert.Error(t, err, "remote mode without JUDGE_URL must fail")

	t.Setenv("JUDGE_URL", "http://judge.internal:9000")
	_, err = Load()
	assert.Error(t, err, "remote mode without JUDGE_API_KEY must fail")

	t.Setenv("JUDGE_API_KEY", "test-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, JudgeModeRemote, cfg.JudgeMode)
}

func TestLoadRejectsUnknownJudgeMode(t *testing.T) {
	t.Setenv("JUDGE_MODE", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "impact max at 1", mutate: func(c *Config) { c.ImpactMax = 1.0 }},
		{name: "negative impact max", mutate: func(c *Config) { c.ImpactMax = -0.1 }},
		{name: "zero steepness", mutate: func(c *Config) { c.ImpactSteepness = 0 }},
		{name: "zero temperature", mutate: func(c *Config) { c.SignalTemperature = 0 }},
		{name: "unknown normalization", mutate: func(c *Config) { c.SignalNormalization = "zscore" }},
		{name: "zero lot size", mutate: func(c *Config) { c.LotSize = 0 }},
		{name: "missing database path", mutate: func(c *Config) { c.DatabasePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IMPACT_MAX", "0.005")
	t.Setenv("LOT_SIZE", "0.01")
	t.Setenv("ORDER_TTL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 0.005, cfg.ImpactMax)
	assert.Equal(t, 0.01, cfg.LotSize)
	assert.Equal(t, int64(60), int64(cfg.OrderTTL.Seconds()))
}
