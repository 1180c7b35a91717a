// Package simulated implements a credential-free exchange.Adapter backed by
// an in-process matching engine, giving the engine a venue to submit to when
// no live exchange is configured (backtests, dry runs, integration tests).
package simulated

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/exchange"
	"github.com/rishav/cryptoengine/internal/exchange/simulated/matching"
	"github.com/rishav/cryptoengine/internal/exchange/simulated/settlement"
	"github.com/rishav/cryptoengine/internal/orders"
)

// Config configures an Adapter.
type Config struct {
	// AccountID is the single account this adapter instance trades as.
	AccountID string
	// JournalDir, if non-empty, persists every order/fill as a journal
	// record under JournalDir for crash recovery. Empty disables journaling.
	JournalDir string
	// InitialCash seeds the account's quote-asset balance, in Scale units.
	InitialCash int64
	// Symbols lists the trading pairs this venue supports.
	Symbols []string
	Logger  zerolog.Logger
}

// Adapter is a simulated exchange.Adapter implementation wrapping a
// single-threaded matching engine and clearing house.
type Adapter struct {
	mu        sync.Mutex
	cfg       Config
	engine    *matching.Engine
	clearing  *settlement.ClearingHouse
	journal   *journal
	connected atomic.Bool
	log       zerolog.Logger

	clientOrders map[string]uint64 // clientOrderID -> engine order ID
}

// NewAdapter constructs an unconnected simulated adapter.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("simulated: AccountID is required")
	}

	var j *journal
	if cfg.JournalDir != "" {
		var err error
		j, err = newJournal(filepath.Join(cfg.JournalDir, cfg.AccountID+".journal"))
		if err != nil {
			return nil, fmt.Errorf("simulated: open journal: %w", err)
		}
	}

	a := &Adapter{
		cfg:          cfg,
		engine:       matching.NewEngine(),
		clearing:     settlement.NewClearingHouse(0), // T+0: crypto spot settles same-trade
		journal:      j,
		log:          cfg.Logger.With().Str("component", "simulated_exchange").Logger(),
		clientOrders: make(map[string]uint64),
	}
	for _, s := range cfg.Symbols {
		a.engine.AddSymbol(s)
	}
	a.clearing.GetOrCreateAccount(cfg.AccountID, cfg.InitialCash)
	return a, nil
}

// Connect replays the journal (if configured) to rebuild engine state, then
// marks the adapter ready to accept orders.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.journal != nil {
		if err := a.journal.replay(a.applyJournaled); err != nil {
			return fmt.Errorf("simulated: replay journal: %w", err)
		}
	}
	a.connected.Store(true)
	a.log.Info().Str("account", a.cfg.AccountID).Msg("simulated exchange connected")
	return nil
}

// Disconnect marks the adapter unavailable and closes its journal.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.connected.Store(false)
	if a.journal != nil {
		return a.journal.close()
	}
	return nil
}

func (a *Adapter) IsConnected() bool { return a.connected.Load() }

func (a *Adapter) Name() string { return "simulated" }

// applyJournaled replays a single journal record during Connect. Order
// entries and cancellations are replayed; fills are deterministic
// consequences of re-submitting the same orders in sequence order, and are
// recorded with the clearing house again as they are regenerated.
func (a *Adapter) applyJournaled(typ internalEventType, data interface{}) error {
	switch typ {
	case internalEventOrderCancelled:
		ev := data.(orderCancelledEvent)
		a.engine.CancelOrder(ev.Symbol, ev.OrderID)
	case internalEventNewOrder:
		ev := data.(newOrderEvent)
		order := &orders.Order{
			ID:            ev.OrderID,
			Symbol:        ev.Symbol,
			Side:          ev.Side,
			Type:          ev.OrderType,
			Price:         ev.Price,
			Quantity:      ev.Quantity,
			AccountID:     ev.AccountID,
			ClientOrderID: ev.ClientOrderID,
		}
		result := a.engine.ProcessOrder(order)
		for _, fill := range result.Fills {
			a.clearing.RecordTrade(fill)
		}
		if ev.ClientOrderID != "" {
			a.clientOrders[ev.ClientOrderID] = ev.OrderID
		}
	case internalEventCancelOrder:
		ev := data.(cancelOrderEvent)
		a.engine.CancelOrder(ev.Symbol, ev.OrderID)
	}
	return nil
}

// PlaceOrder submits order to the matching engine, journals it if configured,
// and records any resulting fills with the clearing house.
func (a *Adapter) PlaceOrder(ctx context.Context, symbol string, side orders.Side, typ orders.OrderType,
	quantity, price int64, clientOrderID string, tif exchange.TimeInForce) (exchange.OrderInfo, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected.Load() {
		return exchange.OrderInfo{}, exchange.NewExchangeError("adapter not connected", "NOT_CONNECTED")
	}

	order := &orders.Order{
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Price:         price,
		Quantity:      quantity,
		AccountID:     a.cfg.AccountID,
		ClientOrderID: clientOrderID,
	}

	if order.Quantity <= 0 {
		return exchange.OrderInfo{}, exchange.NewInvalidOrderError("quantity must be positive")
	}

	orderID := a.engine.NextOrderID()
	order.ID = orderID

	if a.journal != nil {
		if err := a.journal.append(internalEventNewOrder, newOrderEvent{
			OrderID: orderID, Symbol: symbol, Side: side, OrderType: typ,
			Price: price, Quantity: quantity, AccountID: a.cfg.AccountID, ClientOrderID: clientOrderID,
		}); err != nil {
			return exchange.OrderInfo{}, exchange.NewExchangeError(err.Error(), "JOURNAL_WRITE_FAILED")
		}
	}

	result := a.engine.ProcessOrder(order)
	if !result.Accepted {
		if a.journal != nil {
			_ = a.journal.append(internalEventOrderRejected, orderRejectedEvent{
				OrderID: orderID, Symbol: symbol, RejectReason: result.RejectReason,
			})
		}
		return exchange.OrderInfo{}, exchange.NewInvalidOrderError(result.RejectReason)
	}

	if clientOrderID != "" {
		a.clientOrders[clientOrderID] = orderID
	}

	for _, fill := range result.Fills {
		a.clearing.RecordTrade(fill)
		if a.journal != nil {
			_ = a.journal.append(internalEventFill, fillEvent{
				TradeID: fill.TradeID, Symbol: fill.Symbol, Price: fill.Price, Quantity: fill.Quantity,
				MakerOrderID: fill.MakerOrderID, TakerOrderID: fill.TakerOrderID,
				MakerAccountID: fill.MakerAccountID, TakerAccountID: fill.TakerAccountID, TakerSide: fill.TakerSide,
			})
		}
	}

	return a.toOrderInfo(order), nil
}

// CancelOrder cancels a resting order by exchange or client order ID.
func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID, clientOrderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.resolveOrderID(orderID, clientOrderID)
	if err != nil {
		return err
	}

	cancelled, err := a.engine.CancelOrder(symbol, id)
	if err != nil {
		return exchange.NewOrderNotFoundError(err.Error())
	}
	if a.journal != nil {
		_ = a.journal.append(internalEventOrderCancelled, orderCancelledEvent{
			OrderID: id, Symbol: symbol, CancelledQty: cancelled.RemainingQty(), Reason: "client request",
		})
	}
	return nil
}

// GetOrder looks up an order's current state from the matching engine.
func (a *Adapter) GetOrder(ctx context.Context, symbol, orderID, clientOrderID string) (exchange.OrderInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id, err := a.resolveOrderID(orderID, clientOrderID)
	if err != nil {
		return exchange.OrderInfo{}, err
	}
	order := a.engine.GetOrder(symbol, id)
	if order == nil {
		return exchange.OrderInfo{}, exchange.NewOrderNotFoundError(fmt.Sprintf("order %s not found", orderID))
	}
	return a.toOrderInfo(order), nil
}

// GetBalance returns the account's quote-asset cash balance; simulated spot
// accounts track a single cash figure plus per-symbol holdings. Fills that
// PlaceOrder records do not change these figures: the adapter never runs
// the clearing house's Settle step.
func (a *Adapter) GetBalance(ctx context.Context, asset string) (map[string]exchange.Balance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct := a.clearing.GetAccount(a.cfg.AccountID)
	if acct == nil {
		return nil, exchange.NewExchangeError("account not found", "NO_ACCOUNT")
	}
	balances := map[string]exchange.Balance{
		"USDT": {Asset: "USDT", Free: acct.Cash, Locked: 0, Total: acct.Cash},
	}
	for sym, qty := range acct.Holdings {
		balances[sym] = exchange.Balance{Asset: sym, Free: qty, Locked: 0, Total: qty}
	}
	return balances, nil
}

// GetPositions is a no-op for the spot-only simulated venue: cash/holdings
// live in GetBalance, not a derivatives position table.
func (a *Adapter) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return nil, nil
}

// GetTicker reports the simulated order book's best bid/ask and a synthetic
// last trade price (the mid price, since this venue has no external feed).
func (a *Adapter) GetTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	book := a.engine.GetOrderBook(symbol)
	if book == nil {
		return exchange.Ticker{}, exchange.NewExchangeError(fmt.Sprintf("unknown symbol %s", symbol), "UNKNOWN_SYMBOL")
	}
	var bid, ask int64
	if lvl := book.GetBestBid(); lvl != nil {
		bid = lvl.Price
	}
	if lvl := book.GetBestAsk(); lvl != nil {
		ask = lvl.Price
	}
	return exchange.Ticker{Symbol: symbol, Bid: bid, Ask: ask, LastTrade: book.GetMidPrice()}, nil
}

// GetSymbolInfo returns permissive constraints: the simulated venue enforces
// no exchange-side lot size or tick size rules of its own.
func (a *Adapter) GetSymbolInfo(ctx context.Context, symbol string) (exchange.SymbolInfo, error) {
	return exchange.SymbolInfo{
		Symbol:       symbol,
		MinQuantity:  1,
		MaxQuantity:  1 << 62,
		QuantityStep: 1,
		PriceStep:    1,
	}, nil
}

func (a *Adapter) resolveOrderID(orderID, clientOrderID string) (uint64, error) {
	if clientOrderID != "" {
		id, ok := a.clientOrders[clientOrderID]
		if !ok {
			return 0, exchange.NewOrderNotFoundError(fmt.Sprintf("client order id %s not found", clientOrderID))
		}
		return id, nil
	}
	var id uint64
	if _, err := fmt.Sscanf(orderID, "%d", &id); err != nil {
		return 0, exchange.NewInvalidOrderError(fmt.Sprintf("malformed order id %q", orderID))
	}
	return id, nil
}

func (a *Adapter) toOrderInfo(order *orders.Order) exchange.OrderInfo {
	return exchange.OrderInfo{
		OrderID:       fmt.Sprintf("%d", order.ID),
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Type:          order.Type,
		Quantity:      order.Quantity,
		Price:         order.Price,
		Status:        order.Status,
		FilledQty:     order.FilledQty,
	}
}

var _ exchange.Adapter = (*Adapter)(nil)
