package execution

import (
	"fmt"
	"regexp"

	"github.com/rishav/cryptoengine/internal/orders"
)

// symbolPattern is the simple structural check a trading pair must satisfy:
// 3-20 uppercase letters/digits, e.g. "BTCUSDT".
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

// ValidationConfig bounds the confluence score a signal must carry and the
// exchanges this process is willing to trade on.
type ValidationConfig struct {
	MinConfluence      float64
	MaxConfluence      float64
	AllowedExchanges   map[string]bool
}

// ValidationHandler rejects malformed signals before any account or
// exchange I/O happens; rejection here is always terminal.
type ValidationHandler struct {
	cfg ValidationConfig
}

func NewValidationHandler(cfg ValidationConfig) *ValidationHandler {
	return &ValidationHandler{cfg: cfg}
}

func (h *ValidationHandler) Name() string { return "validation" }

func (h *ValidationHandler) Handle(ctx *Context) bool {
	sig := ctx.Signal

	if sig.ConfluenceScore < h.cfg.MinConfluence || sig.ConfluenceScore > h.cfg.MaxConfluence {
		ctx.fail(h.Name(), fmt.Sprintf("confluence %.2f outside [%.2f, %.2f]",
			sig.ConfluenceScore, h.cfg.MinConfluence, h.cfg.MaxConfluence))
		return false
	}

	if !h.cfg.AllowedExchanges[sig.Exchange] {
		ctx.fail(h.Name(), fmt.Sprintf("exchange %q not whitelisted", sig.Exchange))
		return false
	}

	if !symbolPattern.MatchString(sig.Symbol) {
		ctx.fail(h.Name(), fmt.Sprintf("symbol %q does not match required pattern", sig.Symbol))
		return false
	}

	if sig.Side != orders.SideBuy && sig.Side != orders.SideSell {
		ctx.fail(h.Name(), "invalid side")
		return false
	}

	if sig.PositionSizePercent <= 0 || sig.PositionSizePercent > 100 {
		ctx.fail(h.Name(), fmt.Sprintf("position size percent %.2f out of (0, 100]", sig.PositionSizePercent))
		return false
	}

	if sig.StopLoss > 0 && !stopOnCorrectSide(sig.Side, sig.EntryPrice, sig.StopLoss, true) {
		ctx.fail(h.Name(), "stop loss on wrong side of entry")
		return false
	}

	if sig.TakeProfit > 0 && !stopOnCorrectSide(sig.Side, sig.EntryPrice, sig.TakeProfit, false) {
		ctx.fail(h.Name(), "take profit on wrong side of entry")
		return false
	}

	ctx.note("%s: passed", h.Name())
	return true
}

// stopOnCorrectSide checks a protective price is on the correct side of
// entry: a long's stop loss sits below entry and its take profit above;
// a short is the mirror image. isStop distinguishes which rule applies.
func stopOnCorrectSide(side orders.Side, entry, price int64, isStop bool) bool {
	below := price < entry
	if side == orders.SideBuy {
		if isStop {
			return below
		}
		return !below
	}
	if isStop {
		return !below
	}
	return below
}
