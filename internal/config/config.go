package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads an INI-style config file ([section] headers, = or :
// separators, # comments, quoted values) into a typed Config with
// defaults applied for every absent key. An empty path skips the file
// and yields pure defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")

	set := make(keySet)
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
		collectSettingsKeys(v.AllSettings(), set)
	}

	// ini values arrive as strings; bools take the permissive word
	// forms (true/false/1/0/yes/no/on/off), which the weakly-typed
	// decode below does not cover. Normalize before unmarshalling.
	if set.isSet("exchange.instant_fills") {
		v.Set("exchange.instant_fills", parseBool(v.GetString("exchange.instant_fills"), false))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	// The [strategy.sma] section is a dotted ini section name, which
	// Unmarshal cannot map onto the nested struct; read it directly.
	if set.isSet("strategy.sma.fast_period") {
		cfg.Strategy.SMA.FastPeriod = v.GetInt("strategy.sma.fast_period")
	}
	if set.isSet("strategy.sma.slow_period") {
		cfg.Strategy.SMA.SlowPeriod = v.GetInt("strategy.sma.slow_period")
	}
	if set.isSet("strategy.sma.position_size") {
		cfg.Strategy.SMA.PositionSize = v.GetInt64("strategy.sma.position_size")
	}

	cfg.applyDefaults(set)
	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// file read.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

func parseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
