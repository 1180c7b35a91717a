// Package execution implements the chain-of-responsibility order-placement
// pipeline: Validation -> Risk/Sizing -> Placement-with-Retry ->
// Reconciliation. Each handler either advances the shared Context or
// short-circuits the chain with a terminal failure; nothing in the chain
// retries a handler that already ran.
package execution

import (
	"fmt"

	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/orders"
)

// Outcome is the pipeline's terminal verdict.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Context threads state through the handler chain. Handlers only ever add
// to it; none may undo a previous handler's work.
type Context struct {
	Signal *decision.Signal

	ClientOrderID string
	Exchange      exchange.Adapter

	// Populated by the Risk/Sizing handler.
	Quantity            int64
	StopLoss            int64
	TakeProfit          int64
	PositionSizePercent float64

	// Populated by the Placement handler.
	ExchangeOrderID string
	RetryCount      int
	FillStatus      orders.OrderStatus
	FilledQty       int64
	AvgFillPrice    int64
	Commission      int64

	// Populated by the Reconciliation handler.
	SlippageFlagged   bool
	SlippagePct       float64
	PartialFillFlagged bool
	FillRatio         float64

	// Outcome bookkeeping.
	Outcome      Outcome
	FailedStage  string
	FailureReason string
	Log          []string
}

// note appends a handler trace line; used for the HandlerLog surfaced on
// OrderFailedPayload.
func (c *Context) note(format string, args ...interface{}) {
	c.Log = append(c.Log, fmt.Sprintf(format, args...))
}

// fail short-circuits the chain at stage with reason.
func (c *Context) fail(stage, reason string) {
	c.Outcome = OutcomeFailure
	c.FailedStage = stage
	c.FailureReason = reason
	c.note("%s: FAILED: %s", stage, reason)
}

// Handler is one link in the chain. It returns false to short-circuit
// (Context.Outcome is already set to OutcomeFailure by then).
type Handler interface {
	Name() string
	Handle(ctx *Context) bool
}
