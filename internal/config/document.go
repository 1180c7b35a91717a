// Package config loads the engine's YAML configuration document and
// builds the dependency graph from it (Build, in build.go). There are no
// package-level singletons: every component the document describes is
// constructed explicitly and returned to the caller to wire together.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the root of the engine's configuration file.
type Document struct {
	LogLevel    string            `yaml:"log_level"`
	EventBus    EventBusConfig    `yaml:"event_bus"`
	Exchanges   []ExchangeConfig  `yaml:"exchanges"`
	Decision    DecisionConfig    `yaml:"decision"`
	Risk        RiskConfig        `yaml:"risk"`
	Execution   ExecutionConfig   `yaml:"execution"`
	Storage     StorageConfig     `yaml:"storage"`
	Notification NotificationConfig `yaml:"notification"`
	Monitor     MonitorConfig     `yaml:"position_monitor"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// EventBusConfig controls mailbox sizing.
type EventBusConfig struct {
	MailboxSize int `yaml:"mailbox_size"`
}

// ExchangeConfig describes one configured exchange adapter.
type ExchangeConfig struct {
	Name        string   `yaml:"name"`
	Simulated   bool     `yaml:"simulated"`
	Testnet     bool     `yaml:"testnet"`
	Symbols     []string `yaml:"symbols"`
	InitialCash int64    `yaml:"initial_cash"` // whole units, scaled at build time
	JournalDir  string   `yaml:"journal_dir"`
}

// DecisionConfig configures the signal evaluator.
type DecisionConfig struct {
	Exchange                  string  `yaml:"exchange"`
	DefaultPositionSizePercent float64 `yaml:"default_position_size_percent"`
	MinConfluenceScore        float64 `yaml:"min_confluence_score"`
}

// RiskConfig configures the teacher-derived pre-trade checker.
type RiskConfig struct {
	MaxOrderSize     float64 `yaml:"max_order_size"`     // whole units
	MaxOrderValue    float64 `yaml:"max_order_value"`    // whole quote-asset units
	MaxPositionSize  float64 `yaml:"max_position_size"`  // whole units
	MaxDailyVolume   float64 `yaml:"max_daily_volume"`   // whole quote-asset units
	PriceBandPercent float64 `yaml:"price_band_percent"`
}

// ExecutionConfig configures the chain-of-responsibility pipeline.
type ExecutionConfig struct {
	AllowedExchanges           []string      `yaml:"allowed_exchanges"`
	MaxConcurrentPositions     int           `yaml:"max_concurrent_positions"`
	MaxPositionSizePercent     float64       `yaml:"max_position_size_percent"`
	MinRiskRewardRatio         float64       `yaml:"min_risk_reward_ratio"`
	MaxStopLossDistancePercent float64       `yaml:"max_stop_loss_distance_percent"`
	QuoteAsset                 string        `yaml:"quote_asset"`
	RetryMaxAdditionalAttempts int           `yaml:"retry_max_additional_attempts"`
	RetryBase                  time.Duration `yaml:"retry_base"`
	RetryCeiling               time.Duration `yaml:"retry_ceiling"`
	RetryFactor                float64       `yaml:"retry_factor"`
	RetryJitterPercent         float64       `yaml:"retry_jitter_percent"`
	ReconciliationEnabled      bool          `yaml:"reconciliation_enabled"`
	ReconciliationPollInterval time.Duration `yaml:"reconciliation_poll_interval"`
	ReconciliationPollTimeout  time.Duration `yaml:"reconciliation_poll_timeout"`
	MaxSlippagePercent         float64       `yaml:"max_slippage_percent"`
	MinFillRatio               float64       `yaml:"min_fill_ratio"`
}

// StorageConfig configures the tick/candle append-only sink and pool.
type StorageConfig struct {
	DataDir        string        `yaml:"data_dir"`
	MaxOpenHandles int           `yaml:"max_open_handles"`
	RetentionDays  int           `yaml:"retention_days"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// NotificationConfig configures the priority router.
type NotificationConfig struct {
	Recipient   string `yaml:"recipient"`
	RatePerHour int    `yaml:"rate_per_hour"`
}

// MonitorConfig configures the position monitor.
type MonitorConfig struct {
	MaxHoldTime             time.Duration `yaml:"max_hold_time"`
	TrailingStopDistancePct float64       `yaml:"trailing_stop_distance_pct"`
	PollInterval            time.Duration `yaml:"poll_interval"`
}

// MetricsConfig configures the Prometheus collector and HTTP exposition.
type MetricsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	CollectInterval  time.Duration `yaml:"collect_interval"`
	ListenAddress    string        `yaml:"listen_address"`
}

// HTTPConfig configures the read-only status endpoint used by enginectl.
type HTTPConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// Load reads and parses a configuration document from path, applies
// defaults to any unset field, and validates the result. After Load
// returns successfully every field is usable without further checks.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return doc, nil
}

// Default returns a fully-defaulted document suitable for running against
// the simulated exchange with no external configuration.
func Default() *Document {
	doc := &Document{
		Exchanges: []ExchangeConfig{
			{Name: "simulated", Simulated: true, Testnet: true, Symbols: []string{"BTCUSDT", "ETHUSDT"}, InitialCash: 1_000_000},
		},
	}
	doc.applyDefaults()
	return doc
}

func (d *Document) applyDefaults() {
	if d.LogLevel == "" {
		d.LogLevel = "info"
	}
	if d.EventBus.MailboxSize == 0 {
		d.EventBus.MailboxSize = 10000
	}
	if d.Decision.Exchange == "" && len(d.Exchanges) > 0 {
		d.Decision.Exchange = d.Exchanges[0].Name
	}
	if d.Decision.DefaultPositionSizePercent == 0 {
		d.Decision.DefaultPositionSizePercent = 5
	}
	if d.Risk.MaxOrderSize == 0 {
		d.Risk.MaxOrderSize = 100
	}
	if d.Risk.MaxOrderValue == 0 {
		d.Risk.MaxOrderValue = 10_000_000
	}
	if d.Risk.MaxPositionSize == 0 {
		d.Risk.MaxPositionSize = 1_000
	}
	if d.Risk.MaxDailyVolume == 0 {
		d.Risk.MaxDailyVolume = 100_000_000
	}
	if d.Risk.PriceBandPercent == 0 {
		d.Risk.PriceBandPercent = 0.10
	}
	if len(d.Execution.AllowedExchanges) == 0 {
		for _, ex := range d.Exchanges {
			d.Execution.AllowedExchanges = append(d.Execution.AllowedExchanges, ex.Name)
		}
	}
	if d.Execution.MaxConcurrentPositions == 0 {
		d.Execution.MaxConcurrentPositions = 5
	}
	if d.Execution.MaxPositionSizePercent == 0 {
		d.Execution.MaxPositionSizePercent = 10
	}
	if d.Execution.MinRiskRewardRatio == 0 {
		d.Execution.MinRiskRewardRatio = 1.5
	}
	if d.Execution.MaxStopLossDistancePercent == 0 {
		d.Execution.MaxStopLossDistancePercent = 5
	}
	if d.Execution.QuoteAsset == "" {
		d.Execution.QuoteAsset = "USDT"
	}
	if d.Execution.RetryMaxAdditionalAttempts == 0 {
		d.Execution.RetryMaxAdditionalAttempts = 3
	}
	if d.Execution.RetryBase == 0 {
		d.Execution.RetryBase = 200 * time.Millisecond
	}
	if d.Execution.RetryCeiling == 0 {
		d.Execution.RetryCeiling = 5 * time.Second
	}
	if d.Execution.RetryFactor == 0 {
		d.Execution.RetryFactor = 2.0
	}
	if d.Execution.RetryJitterPercent == 0 {
		d.Execution.RetryJitterPercent = 0.25
	}
	if d.Execution.ReconciliationPollInterval == 0 {
		d.Execution.ReconciliationPollInterval = 200 * time.Millisecond
	}
	if d.Execution.ReconciliationPollTimeout == 0 {
		d.Execution.ReconciliationPollTimeout = 5 * time.Second
	}
	if d.Execution.MaxSlippagePercent == 0 {
		d.Execution.MaxSlippagePercent = 0.5
	}
	if d.Execution.MinFillRatio == 0 {
		d.Execution.MinFillRatio = 0.95
	}
	if d.Storage.DataDir == "" {
		d.Storage.DataDir = "./data"
	}
	if d.Storage.MaxOpenHandles == 0 {
		d.Storage.MaxOpenHandles = 64
	}
	if d.Storage.RetentionDays == 0 {
		d.Storage.RetentionDays = 30
	}
	if d.Storage.SweepInterval == 0 {
		d.Storage.SweepInterval = time.Hour
	}
	if d.Notification.RatePerHour == 0 {
		d.Notification.RatePerHour = 10
	}
	if d.Monitor.MaxHoldTime == 0 {
		d.Monitor.MaxHoldTime = 24 * time.Hour
	}
	if d.Monitor.PollInterval == 0 {
		d.Monitor.PollInterval = 5 * time.Second
	}
	if d.Metrics.CollectInterval == 0 {
		d.Metrics.CollectInterval = 15 * time.Second
	}
	if d.Metrics.ListenAddress == "" {
		d.Metrics.ListenAddress = ":9090"
	}
	if d.HTTP.ListenAddress == "" {
		d.HTTP.ListenAddress = ":8081"
	}
}

// Validate checks internal consistency. Runs after applyDefaults.
func (d *Document) Validate() error {
	if len(d.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange must be configured")
	}
	seen := make(map[string]bool)
	for _, ex := range d.Exchanges {
		if ex.Name == "" {
			return fmt.Errorf("exchange entry missing name")
		}
		if seen[ex.Name] {
			return fmt.Errorf("duplicate exchange name %q", ex.Name)
		}
		seen[ex.Name] = true
	}
	if d.Execution.MinFillRatio <= 0 || d.Execution.MinFillRatio > 1 {
		return fmt.Errorf("execution.min_fill_ratio %f out of range (0, 1]", d.Execution.MinFillRatio)
	}
	return nil
}
