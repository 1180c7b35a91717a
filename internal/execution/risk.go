package execution

import (
	"context"
	"fmt"

	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/risk"
)

// BalanceProvider reports the quote-asset balance (Scale fixed-point)
// available to size a new position against.
type BalanceProvider interface {
	QuoteBalance(ctx context.Context, exchangeName, asset string) (int64, error)
}

// PositionCountProvider reports how many positions are currently open on an
// exchange, used to enforce the maximum-concurrent-positions limit.
type PositionCountProvider interface {
	OpenPositionCount(exchangeName string) int
}

// RiskConfig bounds position sizing and protective-price placement.
type RiskConfig struct {
	MaxConcurrentPositions     int
	MaxPositionSizePercent     float64
	MinRiskRewardRatio         float64 // 0 disables the check
	MaxStopLossDistancePercent float64 // used both as a cap and as the synthesized default
	QuoteAsset                 string
}

// RiskSizingHandler enforces position and exposure limits, computes order
// quantity from account balance, and synthesizes a stop loss when the
// signal omitted one. It also runs the teacher's pre-trade reference-price
// and daily-volume checks as additional guards.
type RiskSizingHandler struct {
	cfg       RiskConfig
	balances  BalanceProvider
	positions PositionCountProvider
	checker   *risk.Checker
}

func NewRiskSizingHandler(cfg RiskConfig, balances BalanceProvider, positions PositionCountProvider, checker *risk.Checker) *RiskSizingHandler {
	return &RiskSizingHandler{cfg: cfg, balances: balances, positions: positions, checker: checker}
}

func (h *RiskSizingHandler) Name() string { return "risk_sizing" }

func (h *RiskSizingHandler) Handle(ctx *Context) bool {
	sig := ctx.Signal

	if h.positions.OpenPositionCount(sig.Exchange) >= h.cfg.MaxConcurrentPositions {
		ctx.fail(h.Name(), fmt.Sprintf("max concurrent positions (%d) reached", h.cfg.MaxConcurrentPositions))
		return false
	}

	percent := sig.PositionSizePercent
	if percent > h.cfg.MaxPositionSizePercent {
		ctx.fail(h.Name(), fmt.Sprintf("position size percent %.2f exceeds max %.2f", percent, h.cfg.MaxPositionSizePercent))
		return false
	}

	stopLoss := sig.StopLoss
	if stopLoss == 0 {
		stopLoss = synthesizeStopLoss(sig.Side, sig.EntryPrice, h.cfg.MaxStopLossDistancePercent)
		ctx.note("%s: synthesized stop loss at %s (%.2f%% max distance)", h.Name(), orders.FormatPrice(stopLoss), h.cfg.MaxStopLossDistancePercent)
	}

	stopDistancePct := distancePercent(sig.EntryPrice, stopLoss)
	if stopDistancePct > h.cfg.MaxStopLossDistancePercent {
		ctx.fail(h.Name(), fmt.Sprintf("stop loss distance %.2f%% exceeds max %.2f%%", stopDistancePct, h.cfg.MaxStopLossDistancePercent))
		return false
	}

	if sig.TakeProfit > 0 && h.cfg.MinRiskRewardRatio > 0 {
		riskAmount := absDiff(sig.EntryPrice, stopLoss)
		reward := absDiff(sig.TakeProfit, sig.EntryPrice)
		if riskAmount == 0 || float64(reward)/float64(riskAmount) < h.cfg.MinRiskRewardRatio {
			ctx.fail(h.Name(), fmt.Sprintf("risk/reward ratio below minimum %.2f", h.cfg.MinRiskRewardRatio))
			return false
		}
	}

	balance, err := h.balances.QuoteBalance(context.Background(), sig.Exchange, h.cfg.QuoteAsset)
	if err != nil {
		ctx.fail(h.Name(), fmt.Sprintf("balance lookup failed: %v", err))
		return false
	}

	quantity := computeQuantity(balance, percent, sig.EntryPrice)
	if quantity <= 0 {
		ctx.fail(h.Name(), "computed quantity is non-positive")
		return false
	}

	if h.checker != nil {
		probe := &orders.Order{
			Symbol: sig.Symbol, Side: sig.Side, Type: orders.OrderTypeLimit,
			Quantity: quantity, Price: sig.EntryPrice, AccountID: sig.Exchange,
		}
		result := h.checker.Check(probe)
		if !result.Passed {
			ctx.fail(h.Name(), fmt.Sprintf("pre-trade check failed: %s", result.Reason))
			return false
		}
	}

	ctx.Quantity = quantity
	ctx.StopLoss = stopLoss
	ctx.TakeProfit = sig.TakeProfit
	ctx.PositionSizePercent = percent
	ctx.note("%s: sized %s units, stop=%s, take=%s", h.Name(), orders.FormatPrice(quantity),
		orders.FormatPrice(stopLoss), orders.FormatPrice(sig.TakeProfit))
	return true
}

func synthesizeStopLoss(side orders.Side, entry int64, maxDistancePercent float64) int64 {
	offset := int64(float64(entry) * maxDistancePercent / 100)
	if side == orders.SideBuy {
		return entry - offset
	}
	return entry + offset
}

func distancePercent(entry, price int64) float64 {
	if entry == 0 {
		return 0
	}
	return float64(absDiff(entry, price)) / float64(entry) * 100
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// computeQuantity sizes an order from balance * percent / 100 / entryPrice,
// all in orders.Scale fixed-point units.
func computeQuantity(balance int64, percent float64, entryPrice int64) int64 {
	if entryPrice <= 0 {
		return 0
	}
	positionValue := float64(balance) * percent / 100
	return int64(positionValue / float64(entryPrice) * orders.Scale)
}
