package simulated

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/orders"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(Config{
		AccountID:   "acct1",
		InitialCash: 1_000_000 * orders.Scale,
		Symbols:     []string{"BTCUSDT"},
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	return a
}

func TestPlaceOrderMatchesRestingOrder(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	sell, err := a.PlaceOrder(ctx, "BTCUSDT", orders.SideSell, orders.OrderTypeLimit,
		1*orders.Scale, 50000*orders.Scale, "maker1", exchange.TimeInForceGTC)
	require.NoError(t, err)
	require.Equal(t, orders.OrderStatusNew, sell.Status)

	buy, err := a.PlaceOrder(ctx, "BTCUSDT", orders.SideBuy, orders.OrderTypeLimit,
		1*orders.Scale, 50000*orders.Scale, "taker1", exchange.TimeInForceGTC)
	require.NoError(t, err)
	require.Equal(t, orders.OrderStatusFilled, buy.Status)
	require.Equal(t, 1*orders.Scale, buy.FilledQty)
}

func TestPlaceOrderRejectsNonPositiveQuantity(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.PlaceOrder(context.Background(), "BTCUSDT", orders.SideBuy, orders.OrderTypeLimit,
		0, 50000*orders.Scale, "bad1", exchange.TimeInForceGTC)
	require.Error(t, err)

	var ee *exchange.ExchangeError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, exchange.ErrorKindInvalidOrder, ee.Kind)
}

func TestCancelOrderByClientID(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.PlaceOrder(ctx, "BTCUSDT", orders.SideBuy, orders.OrderTypeLimit,
		1*orders.Scale, 49000*orders.Scale, "resting1", exchange.TimeInForceGTC)
	require.NoError(t, err)

	err = a.CancelOrder(ctx, "BTCUSDT", "", "resting1")
	require.NoError(t, err)

	_, err = a.GetOrder(ctx, "BTCUSDT", "", "resting1")
	require.Error(t, err)
}

func TestGetTickerReflectsBookState(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.PlaceOrder(ctx, "BTCUSDT", orders.SideBuy, orders.OrderTypeLimit,
		1*orders.Scale, 49000*orders.Scale, "bid1", exchange.TimeInForceGTC)
	require.NoError(t, err)
	_, err = a.PlaceOrder(ctx, "BTCUSDT", orders.SideSell, orders.OrderTypeLimit,
		1*orders.Scale, 51000*orders.Scale, "ask1", exchange.TimeInForceGTC)
	require.NoError(t, err)

	ticker, err := a.GetTicker(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, int64(49000*orders.Scale), ticker.Bid)
	require.Equal(t, int64(51000*orders.Scale), ticker.Ask)
}

func TestGetBalanceAfterFillIncludesQuoteAsset(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.PlaceOrder(ctx, "BTCUSDT", orders.SideSell, orders.OrderTypeLimit,
		1*orders.Scale, 50000*orders.Scale, "maker2", exchange.TimeInForceGTC)
	require.NoError(t, err)
	_, err = a.PlaceOrder(ctx, "BTCUSDT", orders.SideBuy, orders.OrderTypeLimit,
		1*orders.Scale, 50000*orders.Scale, "taker2", exchange.TimeInForceGTC)
	require.NoError(t, err)

	balances, err := a.GetBalance(ctx, "")
	require.NoError(t, err)
	require.Contains(t, balances, "USDT")
}
