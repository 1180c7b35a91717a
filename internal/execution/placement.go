package execution

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/orders"
)

// BackoffConfig controls the placement handler's retry schedule:
// attempt n's delay is base * factor^(n-1), clamped at ceiling, with
// optional +/-jitterPercent randomization.
type BackoffConfig struct {
	MaxAdditionalAttempts int // default 3
	Base                  time.Duration
	Factor                float64
	Ceiling               time.Duration
	JitterPercent         float64 // e.g. 0.25 for +/-25%
}

// DefaultBackoffConfig matches the documented defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAdditionalAttempts: 3,
		Base:                  200 * time.Millisecond,
		Factor:                2.0,
		Ceiling:               5 * time.Second,
		JitterPercent:         0.25,
	}
}

// delay returns the backoff delay before retry attempt n (1-indexed).
func (b BackoffConfig) delay(n int) time.Duration {
	raw := float64(b.Base) * pow(b.Factor, n-1)
	if ceiling := float64(b.Ceiling); raw > ceiling {
		raw = ceiling
	}
	if b.JitterPercent > 0 {
		jitter := raw * b.JitterPercent
		raw += (rand.Float64()*2 - 1) * jitter
		if raw < 0 {
			raw = 0
		}
	}
	return time.Duration(raw)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// PlacementHandler submits the sized order to the exchange adapter,
// retrying retriable failures with exponential backoff up to the cap.
type PlacementHandler struct {
	backoff BackoffConfig
	sleep   func(time.Duration)
	log     zerolog.Logger
}

func NewPlacementHandler(backoff BackoffConfig, log zerolog.Logger) *PlacementHandler {
	return &PlacementHandler{backoff: backoff, sleep: time.Sleep, log: log}
}

func (h *PlacementHandler) Name() string { return "order_placement" }

func (h *PlacementHandler) Handle(ctx *Context) bool {
	sig := ctx.Signal
	clientOrderID := ctx.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = newClientOrderID()
		ctx.ClientOrderID = clientOrderID
	}

	attempt := 0
	for {
		info, err := ctx.Exchange.PlaceOrder(context.Background(), sig.Symbol, sig.Side, orders.OrderTypeLimit,
			ctx.Quantity, sig.EntryPrice, clientOrderID, exchange.TimeInForceGTC)
		if err == nil {
			ctx.ExchangeOrderID = info.OrderID
			ctx.FillStatus = info.Status
			ctx.FilledQty = info.FilledQty
			ctx.AvgFillPrice = info.AvgFillPrice
			ctx.Commission = info.Commission
			ctx.RetryCount = attempt
			ctx.note("%s: placed, exchange_order_id=%s, attempts=%d", h.Name(), info.OrderID, attempt+1)
			return true
		}

		if !exchange.IsRetriable(err) || attempt >= h.backoff.MaxAdditionalAttempts {
			ctx.fail(h.Name(), fmt.Sprintf("place order: %v (attempt %d)", err, attempt+1))
			return false
		}

		attempt++
		d := h.backoff.delay(attempt)
		h.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", d).Str("symbol", sig.Symbol).
			Msg("order placement retrying after retriable error")
		ctx.note("%s: retriable error %v, retrying in %s (attempt %d)", h.Name(), err, d, attempt)
		h.sleep(d)
	}
}

func newClientOrderID() string {
	return uuid.NewString()
}
