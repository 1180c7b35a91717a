// Package ordermanager owns the authoritative state of every order the
// execution engine has created this process: the managed-order state
// machine, an active-order index, an exchange-id index, and a bounded
// history ring buffer for terminal orders.
package ordermanager

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rishav/cryptoengine/internal/orders"
)

// ManagedOrder is the mutable state record for one order the execution
// engine has created.
type ManagedOrder struct {
	ClientOrderID   string
	ExchangeOrderID string
	Symbol          string
	Side            orders.Side
	Type            orders.OrderType
	Quantity        int64
	Price           int64
	State           orders.ManagedState
	FilledQuantity  int64
	AvgFillPrice    int64
	Commission      int64

	CreatedAtNs   int64
	SubmittedAtNs int64
	FilledAtNs    int64
	CancelledAtNs int64

	SignalID   string
	RetryCount int
	LastError  string
}

// IsActive reports whether o is still in the active index (non-terminal).
func (o *ManagedOrder) IsActive() bool { return !o.State.IsTerminal() }

// FillPercentage returns filled/quantity as a percentage, 0 if quantity is 0.
func (o *ManagedOrder) FillPercentage() float64 {
	if o.Quantity == 0 {
		return 0
	}
	return float64(o.FilledQuantity) / float64(o.Quantity) * 100
}

// DefaultMaxHistorySize is the documented default history ring buffer
// capacity.
const DefaultMaxHistorySize = 1000

// Manager is safe for concurrent use: every mutation, lookup and query
// takes the single internal lock, so they are serialized with one another.
type Manager struct {
	log zerolog.Logger

	mu              sync.Mutex
	active          map[string]*ManagedOrder
	exchangeIndex   map[string]string // exchangeOrderID -> clientOrderID
	history         []*ManagedOrder   // bounded FIFO ring (logical; grown+trimmed)
	maxHistorySize  int
}

// New creates a Manager with the given bounded history capacity (0 means
// DefaultMaxHistorySize).
func New(maxHistorySize int, log zerolog.Logger) *Manager {
	if maxHistorySize <= 0 {
		maxHistorySize = DefaultMaxHistorySize
	}
	return &Manager{
		log:            log,
		active:         make(map[string]*ManagedOrder),
		exchangeIndex:  make(map[string]string),
		maxHistorySize: maxHistorySize,
	}
}

// CreateParams describes a new managed order.
type CreateParams struct {
	ClientOrderID string
	Symbol        string
	Side          orders.Side
	Type          orders.OrderType
	Quantity      int64
	Price         int64
	SignalID      string
	CreatedAtNs   int64
}

// Create enters a new order in PENDING and indexes it by client id.
func (m *Manager) Create(p CreateParams) *ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo := &ManagedOrder{
		ClientOrderID: p.ClientOrderID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		Type:          p.Type,
		Quantity:      p.Quantity,
		Price:         p.Price,
		State:         orders.StatePending,
		SignalID:      p.SignalID,
		CreatedAtNs:   p.CreatedAtNs,
	}
	m.active[mo.ClientOrderID] = mo
	return mo
}

// refuse logs and refuses an invalid transition; the manager never panics
// or returns an error for this, per the state machine's contract.
func (m *Manager) refuse(clientID string, from orders.ManagedState, to string) {
	m.log.Warn().
		Str("client_order_id", clientID).
		Str("from", from.String()).
		Str("attempted", to).
		Msg("refused invalid order state transition")
}

// MarkSubmitted transitions PENDING -> SUBMITTED and adds the exchange-id
// index entry.
func (m *Manager) MarkSubmitted(clientID, exchangeID string, submittedAtNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.active[clientID]
	if !ok || mo.State != orders.StatePending {
		from := orders.StateFailed
		if ok {
			from = mo.State
		}
		m.refuse(clientID, from, "SUBMITTED")
		return
	}

	mo.ExchangeOrderID = exchangeID
	mo.State = orders.StateSubmitted
	mo.SubmittedAtNs = submittedAtNs
	m.exchangeIndex[exchangeID] = clientID
}

// MarkAcknowledged transitions SUBMITTED -> ACTIVE once the exchange
// confirms the resting order.
func (m *Manager) MarkAcknowledged(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.active[clientID]
	if !ok || mo.State != orders.StateSubmitted {
		from := orders.StateFailed
		if ok {
			from = mo.State
		}
		m.refuse(clientID, from, "ACTIVE")
		return
	}
	mo.State = orders.StateActive
}

// MarkFilled records a fill, moving the order to PARTIALLY_FILLED or, when
// partial is false, to the terminal FILLED state (migrating it to
// history).
func (m *Manager) MarkFilled(clientID string, filledQty, avgPrice, commission int64, partial bool, filledAtNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.active[clientID]
	if !ok || (mo.State != orders.StateSubmitted && mo.State != orders.StateActive && mo.State != orders.StatePartiallyFilled) {
		from := orders.StateFailed
		if ok {
			from = mo.State
		}
		m.refuse(clientID, from, "FILLED")
		return
	}

	mo.FilledQuantity = filledQty
	mo.AvgFillPrice = avgPrice
	mo.Commission = commission
	mo.FilledAtNs = filledAtNs

	if partial {
		mo.State = orders.StatePartiallyFilled
		return
	}

	mo.State = orders.StateFilled
	m.moveToHistory(mo)
}

// MarkFailed terminates an order as REJECTED (rejected=true) or FAILED.
func (m *Manager) MarkFailed(clientID, errText string, rejected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.active[clientID]
	if !ok || mo.State.IsTerminal() {
		from := orders.StateFailed
		if ok {
			from = mo.State
		}
		m.refuse(clientID, from, "REJECTED/FAILED")
		return
	}

	mo.LastError = errText
	if rejected {
		mo.State = orders.StateRejected
	} else {
		mo.State = orders.StateFailed
	}
	m.moveToHistory(mo)
}

// MarkCancelled terminates an order as CANCELLED.
func (m *Manager) MarkCancelled(clientID string, cancelledAtNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.active[clientID]
	if !ok || mo.State.IsTerminal() {
		from := orders.StateFailed
		if ok {
			from = mo.State
		}
		m.refuse(clientID, from, "CANCELLED")
		return
	}

	mo.State = orders.StateCancelled
	mo.CancelledAtNs = cancelledAtNs
	m.moveToHistory(mo)
}

// moveToHistory removes mo from the active index and appends it to the
// bounded history ring, trimming the oldest entry if at capacity. Caller
// must hold m.mu.
func (m *Manager) moveToHistory(mo *ManagedOrder) {
	delete(m.active, mo.ClientOrderID)
	if mo.ExchangeOrderID != "" {
		delete(m.exchangeIndex, mo.ExchangeOrderID)
	}

	m.history = append(m.history, mo)
	if len(m.history) > m.maxHistorySize {
		m.history = m.history[len(m.history)-m.maxHistorySize:]
	}
}

// GetByClientID looks up an order (active or history) by client id.
func (m *Manager) GetByClientID(clientID string) (*ManagedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mo, ok := m.active[clientID]; ok {
		return mo, true
	}
	for _, mo := range m.history {
		if mo.ClientOrderID == clientID {
			return mo, true
		}
	}
	return nil, false
}

// GetByExchangeID looks up an active order by exchange id. History
// entries are not indexed by exchange id once migrated.
func (m *Manager) GetByExchangeID(exchangeID string) (*ManagedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clientID, ok := m.exchangeIndex[exchangeID]
	if !ok {
		return nil, false
	}
	mo, ok := m.active[clientID]
	return mo, ok
}

// ActiveOrders returns every active order, optionally filtered by symbol.
func (m *Manager) ActiveOrders(symbol string) []*ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ManagedOrder, 0, len(m.active))
	for _, mo := range m.active {
		if symbol != "" && mo.Symbol != symbol {
			continue
		}
		out = append(out, mo)
	}
	return out
}

// History returns terminal orders, most recent last, optionally filtered
// by symbol and bounded by limit (0 means unbounded).
func (m *Manager) History(symbol string, limit int) []*ManagedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*ManagedOrder, 0, len(m.history))
	for _, mo := range m.history {
		if symbol != "" && mo.Symbol != symbol {
			continue
		}
		out = append(out, mo)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Stats summarizes manager sizes for observability.
type Stats struct {
	ActiveCount  int
	HistoryCount int
}

// Stats returns current index sizes.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{ActiveCount: len(m.active), HistoryCount: len(m.history)}
}
