// Package config loads and validates the bot configuration from a yaml
// file, with credentials taken from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

// Config is the resolved bot configuration.
type Config struct {
	// TotalJPY is the base budget per run in yen.
	TotalJPY int64
	// Weights pairs with allocation weights, in canonical run order.
	Weights []domain.PairWeight

	MaxSpreadPct  float64
	MaxVol5mPct   float64
	MaxSlipPct    float64
	DipTriggerPct float64
	DipMultiplier float64
	// DipCapJPY caps the dip-adjusted total; 0 means multiplier-limited.
	DipCapJPY int64

	LowBalanceAlertJPY int64
	KillSwitch         bool
	// Live enables real orders. Default off; DCA_LIVE=1 also enables it.
	Live bool

	// Schedule is a cron expression; empty means a single run.
	Schedule    string
	MetricsAddr string

	AuthMode     string
	TimeWindowMS int64
	HTTPTimeout  time.Duration

	// SpecOverrides replace or extend the built-in pair specs.
	SpecOverrides []domain.PairSpec

	APIKey           string
	APISecret        string
	LineChannelToken string
	LineToUserID     string
}

type yamlConfig struct {
	TotalJPY           int64     `yaml:"total_jpy"`
	Pairs              []string  `yaml:"pairs"`
	Weights            []float64 `yaml:"weights"`
	MaxSpreadPct       float64   `yaml:"max_spread_pct"`
	MaxVol5mPct        float64   `yaml:"max_vol5m_pct"`
	MaxSlipPct         float64   `yaml:"max_slip_pct"`
	DipTriggerPct      float64   `yaml:"dip_trigger_pct"`
	DipMultiplier      float64   `yaml:"dip_multiplier"`
	DipCapJPY          int64     `yaml:"dip_cap_jpy"`
	LowBalanceAlertJPY int64     `yaml:"low_balance_alert_jpy"`
	KillSwitch         bool      `yaml:"kill_switch"`
	Live               bool      `yaml:"live"`
	Schedule           string    `yaml:"schedule"`
	MetricsAddr        string    `yaml:"metrics_addr"`
	AuthMode           string    `yaml:"auth_mode"`
	TimeWindowMS       int64     `yaml:"time_window_ms"`
	HTTPTimeoutSec     int64     `yaml:"http_timeout_sec"`
	PairSpecs          []struct {
		Pair      string  `yaml:"pair"`
		MinSize   float64 `yaml:"min_size"`
		SizeStep  float64 `yaml:"size_step"`
		PriceStep float64 `yaml:"price_step"`
	} `yaml:"pair_specs"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	btc := domain.Pair{Base: "btc", Quote: "jpy"}
	eth := domain.Pair{Base: "eth", Quote: "jpy"}
	return Config{
		TotalJPY: 10000,
		Weights: []domain.PairWeight{
			{Pair: btc, Weight: 0.7},
			{Pair: eth, Weight: 0.3},
		},
		MaxSpreadPct:       0.005,
		MaxVol5mPct:        0.03,
		MaxSlipPct:         0.008,
		DipTriggerPct:      3.0,
		DipMultiplier:      1.5,
		LowBalanceAlertJPY: 20000,
		AuthMode:           "TIME_WINDOW",
		TimeWindowMS:       5000,
		HTTPTimeout:        10 * time.Second,
	}
}

// Load reads the yaml file at path (or returns defaults when path is
// empty), applies environment credentials and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		var yc yamlConfig
		if err := yaml.Unmarshal(raw, &yc); err != nil {
			return Config{}, errors.Wrap(err, "parse config file")
		}
		if err := apply(&cfg, yc); err != nil {
			return Config{}, err
		}
	}

	cfg.APIKey = os.Getenv("BITBANK_API_KEY")
	cfg.APISecret = os.Getenv("BITBANK_API_SECRET")
	cfg.LineChannelToken = os.Getenv("LINE_CHANNEL_TOKEN")
	cfg.LineToUserID = os.Getenv("LINE_TO_USER_ID")
	if liveEnv(os.Getenv("DCA_LIVE")) {
		cfg.Live = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg *Config, yc yamlConfig) error {
	if len(yc.Pairs) > 0 || len(yc.Weights) > 0 {
		if len(yc.Pairs) != len(yc.Weights) {
			return fmt.Errorf("pairs and weights length mismatch: %d vs %d", len(yc.Pairs), len(yc.Weights))
		}
		weights := make([]domain.PairWeight, 0, len(yc.Pairs))
		for i, p := range yc.Pairs {
			pair, err := domain.ParsePair(p)
			if err != nil {
				return err
			}
			weights = append(weights, domain.PairWeight{Pair: pair, Weight: yc.Weights[i]})
		}
		cfg.Weights = weights
	}

	if yc.TotalJPY > 0 {
		cfg.TotalJPY = yc.TotalJPY
	}
	if yc.MaxSpreadPct > 0 {
		cfg.MaxSpreadPct = yc.MaxSpreadPct
	}
	if yc.MaxVol5mPct > 0 {
		cfg.MaxVol5mPct = yc.MaxVol5mPct
	}
	if yc.MaxSlipPct > 0 {
		cfg.MaxSlipPct = yc.MaxSlipPct
	}
	if yc.DipTriggerPct != 0 {
		cfg.DipTriggerPct = yc.DipTriggerPct
	}
	if yc.DipMultiplier > 0 {
		cfg.DipMultiplier = yc.DipMultiplier
	}
	if yc.DipCapJPY > 0 {
		cfg.DipCapJPY = yc.DipCapJPY
	}
	if yc.LowBalanceAlertJPY > 0 {
		cfg.LowBalanceAlertJPY = yc.LowBalanceAlertJPY
	}
	cfg.KillSwitch = yc.KillSwitch
	cfg.Live = yc.Live
	cfg.Schedule = yc.Schedule
	cfg.MetricsAddr = yc.MetricsAddr
	if yc.AuthMode != "" {
		cfg.AuthMode = strings.ToUpper(yc.AuthMode)
	}
	if yc.TimeWindowMS > 0 {
		cfg.TimeWindowMS = yc.TimeWindowMS
	}
	if yc.HTTPTimeoutSec > 0 {
		cfg.HTTPTimeout = time.Duration(yc.HTTPTimeoutSec) * time.Second
	}

	for _, s := range yc.PairSpecs {
		pair, err := domain.ParsePair(s.Pair)
		if err != nil {
			return err
		}
		cfg.SpecOverrides = append(cfg.SpecOverrides, domain.PairSpec{
			Pair:      pair,
			MinSize:   s.MinSize,
			SizeStep:  s.SizeStep,
			PriceStep: s.PriceStep,
		})
	}
	return nil
}

// Validate checks invariants that must abort the run before planning.
func (c Config) Validate() error {
	if c.TotalJPY < 0 {
		return fmt.Errorf("total_jpy must not be negative, got %d", c.TotalJPY)
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("at least one pair is required")
	}
	seen := make(map[domain.Pair]bool, len(c.Weights))
	for _, w := range c.Weights {
		if w.Weight < 0 {
			return fmt.Errorf("weight for %s must not be negative", w.Pair.String())
		}
		if seen[w.Pair] {
			return fmt.Errorf("pair %s listed twice", w.Pair.String())
		}
		seen[w.Pair] = true
	}
	if c.AuthMode != "NONCE" && c.AuthMode != "TIME_WINDOW" {
		return fmt.Errorf("auth_mode must be NONCE or TIME_WINDOW, got %q", c.AuthMode)
	}
	return nil
}

// BuildRegistry merges the built-in specs with the overrides and checks
// that every configured pair is registered. An unregistered pair is a
// fatal configuration error.
func (c Config) BuildRegistry() (*domain.SpecRegistry, error) {
	registry := domain.NewSpecRegistry(domain.DefaultSpecs()...)
	for _, s := range c.SpecOverrides {
		registry.Register(s)
	}
	for _, w := range c.Weights {
		if !registry.Contains(w.Pair) {
			return nil, fmt.Errorf("pair spec not registered for %s", w.Pair.String())
		}
	}
	return registry, nil
}

func liveEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
