// Package config defines all configuration for the execution core. Config
// is loaded from the YAML file whose path the caller passes to Load, with
// fields overridable via HFT_* environment variables; there is no default
// path.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	DryRun   bool           `mapstructure:"dry_run"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Venue    VenueConfig    `mapstructure:"venue"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Order    OrderConfig    `mapstructure:"order"`
	Position PositionConfig `mapstructure:"position"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
}

// FeedConfig tunes the ingress feed handler (§6.5).
type FeedConfig struct {
	RecentSequenceRingLen int `mapstructure:"recent_sequence_ring_len"`
	TickRingCapacity      int `mapstructure:"tick_ring_capacity"`
	TradeRingCapacity     int `mapstructure:"trade_ring_capacity"`
}

// VenueConfig tunes the simulated venue's latency model, admission limits
// and router.
type VenueConfig struct {
	BaseLatencyNs        int64   `mapstructure:"base_latency_ns"`
	JitterStdDevNs       int64   `mapstructure:"jitter_std_dev_ns"`
	QueueDelayNs         int64   `mapstructure:"queue_delay_ns"`
	QueueProbability     float64 `mapstructure:"queue_probability"`
	MaxActiveOrders      int     `mapstructure:"max_active_orders"`
	ResponseRingCapacity int     `mapstructure:"response_ring_capacity"`
	MaxVenues            int     `mapstructure:"max_venues"`
	ConsolidatedRingCap  int     `mapstructure:"consolidated_ring_capacity"`
}

// RiskConfig tunes both risk-control layers (§4.7).
type RiskConfig struct {
	MaxPositionPerInstrument int64   `mapstructure:"max_position_per_instrument"`
	MaxTotalPosition         int64   `mapstructure:"max_total_position"`
	MaxDailyLoss             float64 `mapstructure:"max_daily_loss"`
	MaxOrdersPerSecond       uint64  `mapstructure:"max_orders_per_second"`
	MaxMessagesPerSecond     uint64  `mapstructure:"max_messages_per_second"`
	MaxOrderSize             int64   `mapstructure:"max_order_size"`
	MaxPriceVolatility       float64 `mapstructure:"max_price_volatility"`

	EnhancedDV01Limit          float64 `mapstructure:"enhanced_dv01_limit"`
	EnhancedConcentrationLimit float64 `mapstructure:"enhanced_concentration_limit"`
	EnhancedCorrelationLimit   float64 `mapstructure:"enhanced_correlation_limit"`
	EnhancedVarLimit           float64 `mapstructure:"enhanced_var_limit"`
	EnhancedStressLossLimit    float64 `mapstructure:"enhanced_stress_loss_limit"`
}

// OrderConfig tunes the order lifecycle manager (§4.8).
type OrderConfig struct {
	MaxOrders      int `mapstructure:"max_orders"`
	AuditTrailSize int `mapstructure:"audit_trail_size"`
	MaxVenues      int `mapstructure:"max_venues"`
}

// PositionConfig tunes position reconciliation (§4.9).
type PositionConfig struct {
	MaxVenues            int   `mapstructure:"max_venues"`
	MaxSettlementEntries int   `mapstructure:"max_settlement_entries"`
	MaxPositionHistory   int   `mapstructure:"max_position_history"`
	MaxBreaks            int   `mapstructure:"max_breaks"`
	ReconcileTolerance   int64 `mapstructure:"reconcile_tolerance"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig controls the observability server (§6.6).
type APIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// Load reads config from a YAML file, applying HFT_* environment overrides
// for every field (HFT_RISK_MAX_DAILY_LOSS overrides risk.max_daily_loss,
// and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if os.Getenv("HFT_DRY_RUN") == "true" || os.Getenv("HFT_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Default returns the built-in configuration, for use without a config file
// (e.g. `hftcore replay`). Its values are literals that repeat each
// component's own DefaultConfig; it does not call them.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			RecentSequenceRingLen: 1024,
			TickRingCapacity:      8192,
			TradeRingCapacity:     8192,
		},
		Venue: VenueConfig{
			BaseLatencyNs:        50_000,
			JitterStdDevNs:       10_000,
			QueueDelayNs:         100_000,
			QueueProbability:     0.1,
			MaxActiveOrders:      4096,
			ResponseRingCapacity: 8192,
			MaxVenues:            8,
			ConsolidatedRingCap:  16384,
		},
		Risk: RiskConfig{
			MaxPositionPerInstrument:   100_000_000,
			MaxTotalPosition:           500_000_000,
			MaxDailyLoss:               1_000_000,
			MaxOrdersPerSecond:         1000,
			MaxMessagesPerSecond:       10_000,
			MaxOrderSize:               50_000_000,
			MaxPriceVolatility:         0.02,
			EnhancedDV01Limit:          50_000,
			EnhancedConcentrationLimit: 0.6,
			EnhancedCorrelationLimit:   0.8,
			EnhancedVarLimit:           2_000_000,
			EnhancedStressLossLimit:    5_000_000,
		},
		Order: OrderConfig{
			MaxOrders:      65536,
			AuditTrailSize: 1_048_576,
			MaxVenues:      8,
		},
		Position: PositionConfig{
			MaxVenues:            8,
			MaxSettlementEntries: 10_000,
			MaxPositionHistory:   100_000,
			MaxBreaks:            1000,
			ReconcileTolerance:   1,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		API:     APIConfig{Enabled: false, Port: 8090, PingInterval: 30 * time.Second},
	}
}

// Validate checks value ranges so obviously-broken configuration fails at
// startup rather than at the first hot-path check.
func (c *Config) Validate() error {
	if c.Feed.TickRingCapacity <= 0 || c.Feed.TradeRingCapacity <= 0 {
		return fmt.Errorf("feed ring capacities must be > 0")
	}
	if c.Venue.MaxActiveOrders <= 0 {
		return fmt.Errorf("venue.max_active_orders must be > 0")
	}
	if c.Venue.MaxVenues <= 0 {
		return fmt.Errorf("venue.max_venues must be > 0")
	}
	if c.Risk.MaxPositionPerInstrument <= 0 {
		return fmt.Errorf("risk.max_position_per_instrument must be > 0")
	}
	if c.Risk.MaxTotalPosition <= 0 {
		return fmt.Errorf("risk.max_total_position must be > 0")
	}
	if c.Order.MaxOrders <= 0 {
		return fmt.Errorf("order.max_orders must be > 0")
	}
	if c.Position.MaxVenues <= 0 {
		return fmt.Errorf("position.max_venues must be > 0")
	}
	if c.API.Enabled && c.API.Port <= 0 {
		return fmt.Errorf("api.port must be > 0 when api.enabled is true")
	}
	return nil
}
