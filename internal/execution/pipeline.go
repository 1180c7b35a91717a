package execution

import (
	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/exchange"
)

// Pipeline runs a fixed chain of handlers over a signal: Validation ->
// Risk/Sizing -> Order Placement -> Reconciliation. The chain short-circuits
// on the first handler that returns false.
type Pipeline struct {
	handlers []Handler
}

// NewPipeline builds a Pipeline from the four fixed stages.
func NewPipeline(validation *ValidationHandler, riskSizing *RiskSizingHandler, placement *PlacementHandler, reconciliation *ReconciliationHandler) *Pipeline {
	return &Pipeline{handlers: []Handler{validation, riskSizing, placement, reconciliation}}
}

// Run executes the chain against sig using adapter for exchange I/O.
// clientOrderID, if non-empty, is used as the order's client id instead of
// one generated by the placement handler — callers that need to index the
// order before placement completes (e.g. the order manager) pass one in.
func (p *Pipeline) Run(sig *decision.Signal, adapter exchange.Adapter, clientOrderID string) *Context {
	ctx := &Context{Signal: sig, Exchange: adapter, ClientOrderID: clientOrderID}
	ctx.Outcome = OutcomeSuccess

	for _, h := range p.handlers {
		if !h.Handle(ctx) {
			return ctx
		}
	}
	return ctx
}
