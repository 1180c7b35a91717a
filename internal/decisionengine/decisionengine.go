// Package decisionengine binds the analytics snapshot cache to the
// decision pipeline: on every AnalyticsUpdated event it evaluates the
// (exchange, symbol)'s latest snapshot and, if a signal fires, publishes
// SignalGenerated and hands the full signal to the execution engine.
package decisionengine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/events"
	"github.com/rishav/cryptoengine/internal/eventbus"
	"github.com/rishav/cryptoengine/internal/snapshot"
)

const handlerName = "decision_engine"

// SignalHandler is implemented by internal/executionengine.Engine; kept as
// an interface here so this package doesn't depend on executionengine.
type SignalHandler interface {
	HandleSignal(sig *decision.Signal) error
}

// Engine evaluates the decision pipeline reactively as analytics updates
// land, rather than polling.
type Engine struct {
	pipeline *decision.Pipeline
	cache    *snapshot.Cache
	bus      *eventbus.Bus
	exec     SignalHandler
	log      zerolog.Logger
}

// New builds an Engine.
func New(pipeline *decision.Pipeline, cache *snapshot.Cache, bus *eventbus.Bus, exec SignalHandler, log zerolog.Logger) *Engine {
	return &Engine{pipeline: pipeline, cache: cache, bus: bus, exec: exec, log: log}
}

// Start subscribes to AnalyticsUpdated.
func (e *Engine) Start(ctx context.Context) error {
	e.bus.Subscribe(events.KindAnalyticsUpdated, handlerName, e.onAnalyticsUpdated)
	return nil
}

// Stop unsubscribes.
func (e *Engine) Stop(ctx context.Context) error {
	e.bus.Unsubscribe(events.KindAnalyticsUpdated, handlerName)
	return nil
}

func (e *Engine) onAnalyticsUpdated(ctx context.Context, ev events.Event) error {
	p, ok := ev.Payload.(events.AnalyticsUpdatedPayload)
	if !ok {
		return nil
	}

	snap, ok := e.cache.Get(p.Exchange, p.Symbol)
	if !ok {
		return nil
	}

	sig := e.pipeline.Evaluate(snap, snap.Price, ev.Timestamp)
	if sig == nil {
		return nil
	}

	e.bus.Publish(events.Event{Kind: events.KindSignalGenerated, Timestamp: ev.Timestamp,
		Payload: events.SignalGeneratedPayload{
			Symbol: sig.Symbol, Side: sig.Side, ConfluenceScore: sig.ConfluenceScore,
			EntryPrice: sig.EntryPrice, Confidence: string(sig.Confidence),
		}})

	if err := e.exec.HandleSignal(sig); err != nil {
		e.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("execution engine failed to handle signal")
		return err
	}
	return nil
}
