package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rishav/cryptoengine/internal/orders"
)

// ReconciliationConfig bounds fill verification.
type ReconciliationConfig struct {
	Enabled            bool
	PollInterval       time.Duration
	PollTimeout        time.Duration
	MaxSlippagePercent float64
	MinFillRatio       float64 // default 0.95
}

// DefaultReconciliationConfig matches the documented defaults.
func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		Enabled:            true,
		PollInterval:       200 * time.Millisecond,
		PollTimeout:        5 * time.Second,
		MaxSlippagePercent: 0.5,
		MinFillRatio:       0.95,
	}
}

// ReconciliationHandler polls the exchange for fill confirmation and flags
// excess slippage or a low fill ratio; it never fails the chain outright —
// flags are informational for downstream monitoring.
type ReconciliationHandler struct {
	cfg   ReconciliationConfig
	sleep func(time.Duration)
	now   func() time.Time
}

func NewReconciliationHandler(cfg ReconciliationConfig) *ReconciliationHandler {
	return &ReconciliationHandler{cfg: cfg, sleep: time.Sleep, now: time.Now}
}

func (h *ReconciliationHandler) Name() string { return "reconciliation" }

func (h *ReconciliationHandler) Handle(ctx *Context) bool {
	if !h.cfg.Enabled {
		ctx.note("%s: disabled, skipping", h.Name())
		return true
	}

	deadline := h.now().Add(h.cfg.PollTimeout)
	sig := ctx.Signal

	for {
		info, err := ctx.Exchange.GetOrder(context.Background(), sig.Symbol, ctx.ExchangeOrderID, ctx.ClientOrderID)
		if err == nil {
			ctx.FillStatus = info.Status
			ctx.FilledQty = info.FilledQty
			ctx.AvgFillPrice = info.AvgFillPrice
			ctx.Commission = info.Commission
			if info.Status == orders.OrderStatusFilled || info.Status == orders.OrderStatusCancelled ||
				info.Status == orders.OrderStatusRejected {
				break
			}
		}
		if h.now().After(deadline) {
			ctx.note("%s: polling timeout before terminal status", h.Name())
			break
		}
		h.sleep(h.cfg.PollInterval)
	}

	if ctx.AvgFillPrice > 0 && sig.EntryPrice > 0 {
		ctx.SlippagePct = float64(absDiff(ctx.AvgFillPrice, sig.EntryPrice)) / float64(sig.EntryPrice) * 100
		if ctx.SlippagePct > h.cfg.MaxSlippagePercent {
			ctx.SlippageFlagged = true
			ctx.note("%s: slippage %.3f%% exceeds max %.3f%%", h.Name(), ctx.SlippagePct, h.cfg.MaxSlippagePercent)
		}
	}

	if ctx.Quantity > 0 {
		ctx.FillRatio = float64(ctx.FilledQty) / float64(ctx.Quantity)
		if ctx.FillRatio < h.cfg.MinFillRatio {
			ctx.PartialFillFlagged = true
			ctx.note("%s: fill ratio %.3f below threshold %.3f", h.Name(), ctx.FillRatio, h.cfg.MinFillRatio)
		}
	}

	ctx.note("%s: reconciled, status=%s filled=%s", h.Name(), ctx.FillStatus, fmt.Sprintf("%d", ctx.FilledQty))
	return true
}
