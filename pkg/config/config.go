// Package config loads the engine configuration: viability thresholds,
// budgets, venue set, and queue limits.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/viper"

	"github.com/solana-zh/solarb/pkg"
)

// Config is the recognized option set.
type Config struct {
	RPCEndpoint  string `mapstructure:"rpc_endpoint"`
	RPCRateLimit int    `mapstructure:"rpc_rate_limit"`

	MinProfitLamports int64   `mapstructure:"min_profit_lamports"`
	MinProfitBps      int64   `mapstructure:"min_profit_bps"`
	MinProfitPct      float64 `mapstructure:"min_profit_pct"`
	MaxSlippagePct    float64 `mapstructure:"max_slippage_pct"`

	GasBudgetLamports   int64 `mapstructure:"gas_budget_lamports"`
	TipBudgetLamports   int64 `mapstructure:"tip_budget_lamports"`
	MaxPositionLamports int64 `mapstructure:"max_position_lamports"`

	EnabledVenues []string `mapstructure:"enabled_venues"`
	MinSpreadBps  int64    `mapstructure:"min_spread_bps"`

	MaxPendingAgeMs  int    `mapstructure:"max_pending_age_ms"`
	MaxPendingSize   int    `mapstructure:"max_pending_size"`
	ExpirySlotBuffer uint64 `mapstructure:"expiry_slot_buffer"`

	MinConfidence float64 `mapstructure:"min_confidence"`

	// ProgramKeys optionally overrides venue program ids (base58).
	ProgramKeys map[string]string `mapstructure:"program_keys"`
}

// Load reads configuration from the optional file path and SOLARB_*
// environment variables, over the defaults below.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc_rate_limit", 20)
	v.SetDefault("min_profit_lamports", 100_000)
	v.SetDefault("min_profit_bps", 10)
	v.SetDefault("min_profit_pct", 0.001)
	v.SetDefault("max_slippage_pct", 0.01)
	v.SetDefault("gas_budget_lamports", 50_000)
	v.SetDefault("tip_budget_lamports", 100_000)
	v.SetDefault("max_position_lamports", 10_000_000_000)
	v.SetDefault("enabled_venues", []string{
		string(pkg.VenuePumpSwap),
		string(pkg.VenueRaydiumV4),
		string(pkg.VenueRaydiumClmm),
		string(pkg.VenueMeteoraDlmm),
	})
	v.SetDefault("min_spread_bps", 20)
	v.SetDefault("max_pending_age_ms", 5000)
	v.SetDefault("max_pending_size", 10000)
	v.SetDefault("expiry_slot_buffer", 5)
	v.SetDefault("min_confidence", 0.8)

	v.SetEnvPrefix("SOLARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for venue, key := range c.ProgramKeys {
		decoded, err := base58.Decode(key)
		if err != nil {
			return fmt.Errorf("program key for %s: %w", venue, err)
		}
		if len(decoded) != 32 {
			return fmt.Errorf("program key for %s: expected 32 bytes, got %d", venue, len(decoded))
		}
	}
	return nil
}

// VenueEnabled reports whether a venue is in the enabled set.
func (c *Config) VenueEnabled(venue pkg.VenueName) bool {
	for _, name := range c.EnabledVenues {
		if pkg.VenueName(name) == venue {
			return true
		}
	}
	return false
}

// MaxPendingAge returns the pending-transaction age cap.
func (c *Config) MaxPendingAge() time.Duration {
	return time.Duration(c.MaxPendingAgeMs) * time.Millisecond
}
