// Package executionengine binds the decision pipeline's signals to the
// execution pipeline and the exchange factory, publishing the bus events
// that record the outcome: OrderPlaced and (on fill) OrderFilled plus
// PositionOpened on success, OrderFailed with the handler trace on failure.
package executionengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/execution"
	"github.com/rishav/cryptoengine/internal/ordermanager"
	"github.com/rishav/cryptoengine/internal/orders"
)

// Engine owns the execution pipeline and wires its outcome onto the bus
// and into the order manager.
type Engine struct {
	pipeline *execution.Pipeline
	factory  *exchange.Factory
	orders   *ordermanager.Manager
	bus      *eventbus.Bus
	log      zerolog.Logger
}

// New builds an Engine.
func New(pipeline *execution.Pipeline, factory *exchange.Factory, om *ordermanager.Manager, bus *eventbus.Bus, log zerolog.Logger) *Engine {
	return &Engine{pipeline: pipeline, factory: factory, orders: om, bus: bus, log: log}
}

// HandleSignal runs sig through the execution pipeline and publishes the
// resulting events. It satisfies decisionengine's SignalHandler interface:
// the decision engine calls it directly for every signal it emits.
func (e *Engine) HandleSignal(sig *decision.Signal) error {
	adapter, err := e.factory.Acquire(context.Background(), exchange.Key{Name: sig.Exchange, Market: exchange.MarketSpot})
	if err != nil {
		e.bus.Publish(events.Event{Kind: events.KindOrderFailed, Timestamp: orders.Now(), Payload: events.OrderFailedPayload{
			Symbol: sig.Symbol, FailedStage: "exchange_lookup", Reason: err.Error(),
		}})
		return fmt.Errorf("acquire exchange adapter: %w", err)
	}

	clientOrderID := uuid.NewString()
	mo := e.orders.Create(ordermanager.CreateParams{
		ClientOrderID: clientOrderID, Symbol: sig.Symbol, Side: sig.Side, Quantity: 0, Price: sig.EntryPrice,
	})

	ctx := e.pipeline.Run(sig, adapter, clientOrderID)

	if ctx.Outcome == execution.OutcomeFailure {
		e.orders.MarkFailed(mo.ClientOrderID, ctx.FailureReason, ctx.FailedStage == "validation" || ctx.FailedStage == "risk_sizing")
		e.bus.Publish(events.Event{Kind: events.KindOrderFailed, Timestamp: orders.Now(), Payload: events.OrderFailedPayload{
			ClientOrderID: mo.ClientOrderID, Symbol: sig.Symbol, FailedStage: ctx.FailedStage,
			Reason: ctx.FailureReason, HandlerLog: ctx.Log,
		}})
		return nil
	}

	e.orders.MarkSubmitted(mo.ClientOrderID, ctx.ExchangeOrderID, sig.TimestampNs)
	e.bus.Publish(events.Event{Kind: events.KindOrderPlaced, Timestamp: orders.Now(), Payload: events.OrderPlacedPayload{
		ClientOrderID: mo.ClientOrderID, ExchangeID: ctx.ExchangeOrderID, Symbol: sig.Symbol,
		Side: sig.Side, Quantity: ctx.Quantity, Price: sig.EntryPrice,
	}})

	if ctx.FilledQty > 0 {
		partial := ctx.FilledQty < ctx.Quantity
		e.orders.MarkFilled(mo.ClientOrderID, ctx.FilledQty, ctx.AvgFillPrice, ctx.Commission, partial, sig.TimestampNs)
		e.bus.Publish(events.Event{Kind: events.KindOrderFilled, Timestamp: orders.Now(), Payload: events.OrderFilledPayload{
			ClientOrderID: mo.ClientOrderID, ExchangeID: ctx.ExchangeOrderID, Symbol: sig.Symbol,
			FilledQty: ctx.FilledQty, AvgFillPrice: ctx.AvgFillPrice, Partial: partial,
		}})
		e.bus.Publish(events.Event{Kind: events.KindPositionOpened, Timestamp: orders.Now(), Payload: events.PositionOpenedPayload{
			ClientOrderID: mo.ClientOrderID, Symbol: sig.Symbol, Side: sig.Side,
			Quantity: ctx.FilledQty, EntryPrice: ctx.AvgFillPrice, StopLoss: ctx.StopLoss, TakeProfit: ctx.TakeProfit,
		}})
	}

	return nil
}
