// Package exchange defines the uniform façade every concrete exchange
// integration implements (Adapter), the error taxonomy callers must
// distinguish, and a Factory that caches one adapter instance per
// (name, market type, testnet) triple.
package exchange

import (
	"context"

	"github.com/rishav/cryptoengine/internal/orders"
)

// MarketType distinguishes spot from derivatives venues.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// TimeInForce controls how long a resting order remains eligible to match.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Balance is one asset's balance breakdown.
type Balance struct {
	Asset  string
	Free   int64
	Locked int64
	Total  int64
}

// Position is an open derivatives position; empty for cash/spot venues.
type Position struct {
	Symbol       string
	Side         orders.Side
	Quantity     int64
	EntryPrice   int64
	MarkPrice    int64
	UnrealizedPnL int64
}

// OrderInfo reports an order's state as the exchange sees it.
type OrderInfo struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          orders.Side
	Type          orders.OrderType
	Quantity      int64
	Price         int64
	Status        orders.OrderStatus
	FilledQty     int64
	AvgFillPrice  int64
	Commission    int64
}

// Ticker is the current best bid/ask/last trade for a symbol.
type Ticker struct {
	Symbol   string
	Bid      int64
	Ask      int64
	LastTrade int64
}

// SymbolInfo carries exchange-enforced constraints for a symbol.
type SymbolInfo struct {
	Symbol        string
	MinQuantity   int64
	MaxQuantity   int64
	QuantityStep  int64
	PriceStep     int64
}

// Adapter is the uniform façade over one exchange's order and account
// APIs. Implementations must serialize internally against concurrent
// calls from the execution pipeline and reconciliation polling if the
// underlying API is not itself safe for concurrent use.
type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Name() string

	PlaceOrder(ctx context.Context, symbol string, side orders.Side, typ orders.OrderType,
		quantity, price int64, clientOrderID string, tif TimeInForce) (OrderInfo, error)
	CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error
	GetOrder(ctx context.Context, symbol, orderID, clientOrderID string) (OrderInfo, error)
	GetBalance(ctx context.Context, asset string) (map[string]Balance, error)
	GetPositions(ctx context.Context, symbol string) ([]Position, error)
	GetTicker(ctx context.Context, symbol string) (Ticker, error)
	GetSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
}
