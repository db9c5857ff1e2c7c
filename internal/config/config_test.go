package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.InDelta(t, 1_000_000.0, cfg.Portfolio.InitialCapital, 1e-9)
	assert.InDelta(t, 1_000_000.0, cfg.Portfolio.MaxPositionSize, 1e-9)
	assert.InDelta(t, 5_000_000.0, cfg.Portfolio.MaxPortfolioExposure, 1e-9)
	assert.Equal(t, 10, cfg.Exchange.FillLatencyMs)
	assert.Equal(t, 0.0, cfg.Exchange.RejectionRate)
	assert.Equal(t, 0.0, cfg.Exchange.PartialFillRate)
	assert.InDelta(t, 5.0, cfg.Exchange.SlippageBps, 1e-9)
	assert.False(t, cfg.Exchange.InstantFills)
	assert.Equal(t, 10, cfg.Strategy.SMA.FastPeriod)
	assert.Equal(t, 30, cfg.Strategy.SMA.SlowPeriod)
	assert.Equal(t, int64(10_000), cfg.Strategy.SMA.PositionSize)
}

func TestLoadSections(t *testing.T) {
	path := writeConfig(t, `
# engine configuration
[portfolio]
initial_capital = 250000
max_position_size = 50000

[exchange]
fill_latency_ms = 3
slippage_bps = 2.5
instant_fills = yes

[strategy.sma]
fast_period = 5
slow_period = 20
position_size = 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 250_000.0, cfg.Portfolio.InitialCapital, 1e-9)
	assert.InDelta(t, 50_000.0, cfg.Portfolio.MaxPositionSize, 1e-9)
	assert.InDelta(t, 5_000_000.0, cfg.Portfolio.MaxPortfolioExposure, 1e-9, "absent keys keep their defaults")
	assert.Equal(t, 3, cfg.Exchange.FillLatencyMs)
	assert.InDelta(t, 2.5, cfg.Exchange.SlippageBps, 1e-9)
	assert.True(t, cfg.Exchange.InstantFills)
	assert.Equal(t, 5, cfg.Strategy.SMA.FastPeriod)
	assert.Equal(t, 20, cfg.Strategy.SMA.SlowPeriod)
	assert.Equal(t, int64(100), cfg.Strategy.SMA.PositionSize)
}

func TestExplicitZeroIsNotDefaulted(t *testing.T) {
	path := writeConfig(t, `
[exchange]
fill_latency_ms = 0
slippage_bps = 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Exchange.FillLatencyMs, "an explicit zero survives defaulting")
	assert.Equal(t, 0.0, cfg.Exchange.SlippageBps)
}

func TestBoolWordForms(t *testing.T) {
	for raw, want := range map[string]bool{
		"true": true, "1": true, "yes": true, "on": true, "On": true,
		"false": false, "0": false, "no": false, "off": false, "OFF": false,
	} {
		path := writeConfig(t, "[exchange]\ninstant_fills = "+raw+"\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Exchange.InstantFills, raw)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)
}

func TestDefaultHelper(t *testing.T) {
	cfg := Default()
	assert.InDelta(t, 1_000_000.0, cfg.Portfolio.InitialCapital, 1e-9)
}
