package config

const (
	defaultLogLevel        = "info"
	defaultHTTPAddr        = ":9980"
	defaultResultsPath     = "data/backtest/runs.db"
	defaultInitialCapital  = 1_000_000.0
	defaultMaxPositionSize = 1_000_000.0
	defaultMaxExposure     = 5_000_000.0
	defaultFillLatencyMs   = 10
	defaultSlippageBps     = 5.0
	defaultSMAFast         = 10
	defaultSMASlow         = 30
	defaultSMASize         = 10_000
)

// applyDefaults fills every field whose key the file did not set.
// Rejection and partial-fill rates default to zero and need no rule.
func (c *Config) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{key: "app.log_level", apply: func() { c.App.LogLevel = defaultLogLevel }},
		fieldDefault{key: "app.http_addr", apply: func() { c.App.HTTPAddr = defaultHTTPAddr }},
		fieldDefault{key: "app.results_path", apply: func() { c.App.ResultsPath = defaultResultsPath }},
		fieldDefault{key: "portfolio.initial_capital", apply: func() { c.Portfolio.InitialCapital = defaultInitialCapital }},
		fieldDefault{key: "portfolio.max_position_size", apply: func() { c.Portfolio.MaxPositionSize = defaultMaxPositionSize }},
		fieldDefault{key: "portfolio.max_portfolio_exposure", apply: func() { c.Portfolio.MaxPortfolioExposure = defaultMaxExposure }},
		fieldDefault{key: "exchange.fill_latency_ms", apply: func() { c.Exchange.FillLatencyMs = defaultFillLatencyMs }},
		fieldDefault{key: "exchange.slippage_bps", apply: func() { c.Exchange.SlippageBps = defaultSlippageBps }},
		fieldDefault{key: "strategy.sma.fast_period", apply: func() { c.Strategy.SMA.FastPeriod = defaultSMAFast }},
		fieldDefault{key: "strategy.sma.slow_period", apply: func() { c.Strategy.SMA.SlowPeriod = defaultSMASlow }},
		fieldDefault{key: "strategy.sma.position_size", apply: func() { c.Strategy.SMA.PositionSize = defaultSMASize }},
	)
}

func applyFieldDefaults(keys keySet, defaults ...fieldDefault) {
	for _, d := range defaults {
		if keys.isSet(d.key) {
			continue
		}
		d.apply()
	}
}
