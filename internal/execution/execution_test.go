package execution

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/decision"
	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/orders"
	"github.com/rishav/cryptoengine/internal/risk"
)

type fakeAdapter struct {
	placeErrs   []error
	placeCalls  int
	orderStatus orders.OrderStatus
	filledQty   int64
	avgFill     int64
}

func (f *fakeAdapter) Connect(ctx context.Context) error    { return nil }
func (f *fakeAdapter) Disconnect(ctx context.Context) error { return nil }
func (f *fakeAdapter) IsConnected() bool                    { return true }
func (f *fakeAdapter) Name() string                         { return "fake" }

func (f *fakeAdapter) PlaceOrder(ctx context.Context, symbol string, side orders.Side, typ orders.OrderType,
	quantity, price int64, clientOrderID string, tif exchange.TimeInForce) (exchange.OrderInfo, error) {
	idx := f.placeCalls
	f.placeCalls++
	if idx < len(f.placeErrs) && f.placeErrs[idx] != nil {
		return exchange.OrderInfo{}, f.placeErrs[idx]
	}
	return exchange.OrderInfo{
		OrderID: "ex-1", ClientOrderID: clientOrderID, Symbol: symbol, Side: side, Type: typ,
		Quantity: quantity, Price: price, Status: f.orderStatus, FilledQty: f.filledQty, AvgFillPrice: f.avgFill,
	}, nil
}

func (f *fakeAdapter) CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error {
	return nil
}

func (f *fakeAdapter) GetOrder(ctx context.Context, symbol, orderID, clientOrderID string) (exchange.OrderInfo, error) {
	return exchange.OrderInfo{
		OrderID: orderID, Status: f.orderStatus, FilledQty: f.filledQty, AvgFillPrice: f.avgFill,
	}, nil
}

func (f *fakeAdapter) GetBalance(ctx context.Context, asset string) (map[string]exchange.Balance, error) {
	return nil, nil
}
func (f *fakeAdapter) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return nil, nil
}
func (f *fakeAdapter) GetTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	return exchange.Ticker{}, nil
}
func (f *fakeAdapter) GetSymbolInfo(ctx context.Context, symbol string) (exchange.SymbolInfo, error) {
	return exchange.SymbolInfo{}, nil
}

type fakeBalances struct{ balance int64 }

func (b fakeBalances) QuoteBalance(ctx context.Context, exchangeName, asset string) (int64, error) {
	return b.balance, nil
}

type fakePositions struct{ count int }

func (p fakePositions) OpenPositionCount(exchangeName string) int { return p.count }

func testPipeline(adapter *fakeAdapter) *Pipeline {
	validation := NewValidationHandler(ValidationConfig{
		MinConfluence: 0, MaxConfluence: 100,
		AllowedExchanges: map[string]bool{"binance": true},
	})
	riskSizing := NewRiskSizingHandler(RiskConfig{
		MaxConcurrentPositions: 5, MaxPositionSizePercent: 10,
		MinRiskRewardRatio: 1.5, MaxStopLossDistancePercent: 5, QuoteAsset: "USDT",
	}, fakeBalances{balance: 10000 * orders.Scale}, fakePositions{count: 0}, risk.NewChecker(risk.DefaultConfig()))
	placement := NewPlacementHandler(BackoffConfig{
		MaxAdditionalAttempts: 3, Base: time.Millisecond, Factor: 2, Ceiling: 10 * time.Millisecond,
	}, zerolog.Nop())
	placement.sleep = func(time.Duration) {}
	reconciliation := NewReconciliationHandler(ReconciliationConfig{
		Enabled: true, PollInterval: time.Millisecond, PollTimeout: 5 * time.Millisecond,
		MaxSlippagePercent: 0.5, MinFillRatio: 0.95,
	})
	return NewPipeline(validation, riskSizing, placement, reconciliation)
}

func sampleSignal() *decision.Signal {
	return &decision.Signal{
		Symbol: "BTCUSDT", Exchange: "binance", Side: orders.SideBuy,
		ConfluenceScore: 4, EntryPrice: 50000 * orders.Scale,
		StopLoss: 49000 * orders.Scale, TakeProfit: 53000 * orders.Scale,
		PositionSizePercent: 5,
	}
}

func TestPipelineHappyPath(t *testing.T) {
	adapter := &fakeAdapter{orderStatus: orders.OrderStatusFilled, filledQty: 1, avgFill: 50000 * orders.Scale}
	p := testPipeline(adapter)
	ctx := p.Run(sampleSignal(), adapter, "")

	require.Equal(t, OutcomeSuccess, ctx.Outcome)
	require.Equal(t, "ex-1", ctx.ExchangeOrderID)
	require.False(t, ctx.SlippageFlagged)
}

func TestPipelineRejectsUnwhitelistedExchange(t *testing.T) {
	adapter := &fakeAdapter{orderStatus: orders.OrderStatusFilled}
	p := testPipeline(adapter)
	sig := sampleSignal()
	sig.Exchange = "unknown"
	ctx := p.Run(sig, adapter, "")

	require.Equal(t, OutcomeFailure, ctx.Outcome)
	require.Equal(t, "validation", ctx.FailedStage)
}

func TestPipelineRetriesRetriableErrorThenSucceeds(t *testing.T) {
	adapter := &fakeAdapter{
		placeErrs:   []error{exchange.NewRateLimitError("slow down"), exchange.NewRateLimitError("slow down")},
		orderStatus: orders.OrderStatusFilled, filledQty: 1, avgFill: 50000 * orders.Scale,
	}
	p := testPipeline(adapter)
	ctx := p.Run(sampleSignal(), adapter, "")

	require.Equal(t, OutcomeSuccess, ctx.Outcome)
	require.Equal(t, 2, ctx.RetryCount)
}

func TestPipelineFailsTerminalOnNonRetriableError(t *testing.T) {
	adapter := &fakeAdapter{placeErrs: []error{exchange.NewInsufficientBalanceError("no funds")}}
	p := testPipeline(adapter)
	ctx := p.Run(sampleSignal(), adapter, "")

	require.Equal(t, OutcomeFailure, ctx.Outcome)
	require.Equal(t, "order_placement", ctx.FailedStage)
}

func TestPipelineFlagsExcessSlippage(t *testing.T) {
	adapter := &fakeAdapter{orderStatus: orders.OrderStatusFilled, filledQty: 1, avgFill: 51000 * orders.Scale}
	p := testPipeline(adapter)
	ctx := p.Run(sampleSignal(), adapter, "")

	require.Equal(t, OutcomeSuccess, ctx.Outcome)
	require.True(t, ctx.SlippageFlagged)
}

func TestPipelineRejectsExcessPositionSizePercent(t *testing.T) {
	adapter := &fakeAdapter{orderStatus: orders.OrderStatusFilled}
	p := testPipeline(adapter)
	sig := sampleSignal()
	sig.PositionSizePercent = 50
	ctx := p.Run(sig, adapter, "")

	require.Equal(t, OutcomeFailure, ctx.Outcome)
	require.Equal(t, "risk_sizing", ctx.FailedStage)
}
