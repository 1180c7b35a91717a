// Package events defines the closed catalog of events carried on the bus
// (see Kind in kind.go) and the typed payload each kind carries.
package events

import (
	"github.com/rishav/cryptoengine/internal/orders"
)

// Event is the envelope carried across the bus. Payload holds one of the
// kind-specific structs below; handlers type-assert on Kind before reading
// it.
type Event struct {
	Kind        Kind
	SequenceNum uint64 // global sequence number, assigned at publish time
	Timestamp   int64  // nanoseconds since epoch, UTC
	Payload     interface{}
}

// TradeTickReceivedPayload carries a single trade print from a market data
// adapter.
type TradeTickReceivedPayload struct {
	Exchange string
	Symbol   string
	Price    int64 // orders.Scale fixed-point
	Quantity int64 // orders.Scale fixed-point
	Side     orders.Side
}

// CandleCompletedPayload marks the close of an OHLCV bar at one of the
// storage layer's supported resolutions.
type CandleCompletedPayload struct {
	Exchange       string
	Symbol         string
	ResolutionSecs int
	Open           int64
	High           int64
	Low            int64
	Close          int64
	Volume         int64
}

// AnalyticsUpdatedPayload announces that a fresh snapshot has superseded
// the cached one for (Exchange, Symbol).
type AnalyticsUpdatedPayload struct {
	Exchange string
	Symbol   string
}

// SignalGeneratedPayload mirrors a decision-pipeline trade signal so
// downstream handlers can read it off the bus without importing the
// decision package.
type SignalGeneratedPayload struct {
	Symbol          string
	Side            orders.Side
	ConfluenceScore float64
	EntryPrice      int64
	Confidence      string // LOW | MEDIUM | HIGH | VERY_HIGH
}

// OrderPlacedPayload is emitted once the execution pipeline reaches
// SUCCESS: the order has been submitted (and reconciled, if enabled).
type OrderPlacedPayload struct {
	ClientOrderID string
	ExchangeID    string
	Symbol        string
	Side          orders.Side
	Quantity      int64
	Price         int64
}

// OrderFilledPayload announces a partial or complete fill against a
// managed order.
type OrderFilledPayload struct {
	ClientOrderID string
	ExchangeID    string
	Symbol        string
	FilledQty     int64
	AvgFillPrice  int64
	Partial       bool
}

// PositionOpenedPayload is emitted alongside OrderFilled when a fill opens
// exposure that the position monitor should start tracking.
type PositionOpenedPayload struct {
	ClientOrderID string
	Symbol        string
	Side          orders.Side
	Quantity      int64
	EntryPrice    int64
	StopLoss      int64
	TakeProfit    int64
}

// PositionClosedPayload marks a previously-opened position as flat.
type PositionClosedPayload struct {
	ClientOrderID string
	Symbol        string
	ExitPrice     int64
	Reason        string
}

// TrailingStopHitPayload is emitted by the position monitor when a
// trailing stop crosses the current price.
type TrailingStopHitPayload struct {
	ClientOrderID string
	Symbol        string
	StopPrice     int64
	TriggerPrice  int64
}

// DataQualityIssuePayload flags an anomaly in inbound market data (stale
// tick, crossed book, out-of-sequence print).
type DataQualityIssuePayload struct {
	Exchange string
	Symbol   string
	Reason   string
}

// PortfolioHealthDegradedPayload reports aggregate portfolio drawdown. No
// component of the engine publishes this kind; the notification router
// renders it when one is published.
type PortfolioHealthDegradedPayload struct {
	DrawdownPct float64
	Reason      string
}

// DumpDetectedPayload flags a sudden, sharp single-symbol price decline.
type DumpDetectedPayload struct {
	Exchange string
	Symbol   string
	DropPct  float64
}

// CorrelatedDumpDetectedPayload flags a simultaneous decline across
// multiple correlated symbols.
type CorrelatedDumpDetectedPayload struct {
	Symbols []string
	DropPct float64
}

// MaxHoldTimeExceededPayload is emitted by the position monitor when a
// position has been open longer than its configured maximum hold time.
type MaxHoldTimeExceededPayload struct {
	ClientOrderID string
	Symbol        string
	HeldSeconds   int64
}

// OrderFailedPayload is emitted when the execution pipeline terminates in
// FAILURE; HandlerLog preserves the chain's append-only trace for
// diagnostics.
type OrderFailedPayload struct {
	ClientOrderID string
	Symbol        string
	FailedStage   string
	Reason        string
	HandlerLog    []string
}

// SystemErrorPayload is a catch-all for unexpected internal errors that a
// component chooses to surface rather than merely log.
type SystemErrorPayload struct {
	Component string
	Reason    string
}

// MarketDataConnectionLostPayload signals that a market data adapter's
// upstream connection dropped.
type MarketDataConnectionLostPayload struct {
	Exchange string
	Reason   string
}

// CircuitBreakerTriggeredPayload is emitted when a protective circuit
// breaker (e.g. repeated order failures, stale data) trips.
type CircuitBreakerTriggeredPayload struct {
	Scope  string // e.g. "exchange:binance" or "symbol:BTCUSDT"
	Reason string
}

// ForceExitRequiredPayload asks the execution engine to flatten a position
// immediately, bypassing normal signal generation.
type ForceExitRequiredPayload struct {
	ClientOrderID string
	Symbol        string
	Reason        string
}

// NotificationSentPayload records a successful dispatch for observability.
type NotificationSentPayload struct {
	Tier          string
	NotifyType    string
	RecipientHash string
}

// NotificationFailedPayload records a terminal dispatch failure after
// retries are exhausted.
type NotificationFailedPayload struct {
	Tier       string
	NotifyType string
	Reason     string
}
