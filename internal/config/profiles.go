package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyProfile is one strategy entry from the YAML profiles file.
type StrategyProfile struct {
	Name         string `yaml:"name"`
	Symbol       string `yaml:"symbol"`
	FastPeriod   int    `yaml:"fast_period"`
	SlowPeriod   int    `yaml:"slow_period"`
	PositionSize int64  `yaml:"position_size"`
}

type profilesFile struct {
	Strategies []StrategyProfile `yaml:"strategies"`
}

// LoadProfiles reads the strategies the engine should register. Entries
// missing SMA periods inherit the [strategy.sma] section defaults.
func LoadProfiles(path string, fallback SMAConfig) ([]StrategyProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles failed (%s): %w", path, err)
	}
	var file profilesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing profiles failed: %w", err)
	}
	for i := range file.Strategies {
		p := &file.Strategies[i]
		if p.Name == "" {
			return nil, fmt.Errorf("profiles: strategy %d has no name", i)
		}
		if p.Symbol == "" {
			return nil, fmt.Errorf("profiles: strategy %s has no symbol", p.Name)
		}
		if p.FastPeriod <= 0 {
			p.FastPeriod = fallback.FastPeriod
		}
		if p.SlowPeriod <= 0 {
			p.SlowPeriod = fallback.SlowPeriod
		}
		if p.PositionSize <= 0 {
			p.PositionSize = fallback.PositionSize
		}
		if p.FastPeriod >= p.SlowPeriod {
			return nil, fmt.Errorf("profiles: strategy %s: fast_period must be below slow_period", p.Name)
		}
	}
	return file.Strategies, nil
}
