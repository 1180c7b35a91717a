// Package notification routes bus events to outbound notifications by
// severity tier: CRITICAL is sent immediately with retries, WARNING and
// INFO are batched on their own intervals, and every notification type is
// additionally rate limited to guard against event storms.
package notification

import (
	"time"

	"github.com/rishav/cryptoengine/internal/events"
)

// TierConfig controls one severity tier's dispatch behavior.
type TierConfig struct {
	SendImmediately bool
	BatchInterval   time.Duration
	RetryOnFailure  bool
	MaxRetries      int
}

// Config configures the Router.
type Config struct {
	Tiers map[events.Severity]TierConfig
	// RatePerHour caps deliveries per notification type (event Kind),
	// independent of tier. Zero uses DefaultRatePerHour.
	RatePerHour int
}

// DefaultRatePerHour matches the documented per-type ceiling.
const DefaultRatePerHour = 10

// DefaultConfig mirrors the tier defaults: CRITICAL immediate, WARNING
// batched every 5 minutes, INFO batched every 10 minutes.
func DefaultConfig() Config {
	return Config{
		RatePerHour: DefaultRatePerHour,
		Tiers: map[events.Severity]TierConfig{
			events.SeverityCritical: {SendImmediately: true, RetryOnFailure: true, MaxRetries: 3},
			events.SeverityWarning:  {BatchInterval: 5 * time.Minute, RetryOnFailure: true, MaxRetries: 2},
			events.SeverityInfo:     {BatchInterval: 10 * time.Minute, RetryOnFailure: false, MaxRetries: 0},
		},
	}
}
