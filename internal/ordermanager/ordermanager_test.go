package ordermanager

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/cryptoengine/internal/orders"
)

func TestCreateToFilledHappyPath(t *testing.T) {
	m := New(10, zerolog.Nop())

	mo := m.Create(CreateParams{ClientOrderID: "c1", Symbol: "BTCUSDT", Side: orders.SideBuy, Quantity: 100})
	assert.Equal(t, orders.StatePending, mo.State)

	m.MarkSubmitted("c1", "ex1", 1)
	mo, _ = m.GetByClientID("c1")
	assert.Equal(t, orders.StateSubmitted, mo.State)

	byExch, ok := m.GetByExchangeID("ex1")
	require.True(t, ok)
	assert.Equal(t, "c1", byExch.ClientOrderID)

	m.MarkAcknowledged("c1")
	m.MarkFilled("c1", 100, 50000, 1, false, 2)

	mo, ok = m.GetByClientID("c1")
	require.True(t, ok)
	assert.Equal(t, orders.StateFilled, mo.State)
	assert.False(t, mo.IsActive())

	assert.Empty(t, m.ActiveOrders(""))
	assert.Len(t, m.History("", 0), 1)

	_, stillIndexed := m.GetByExchangeID("ex1")
	assert.False(t, stillIndexed)
}

func TestPartialFillStaysActive(t *testing.T) {
	m := New(10, zerolog.Nop())
	m.Create(CreateParams{ClientOrderID: "c1", Symbol: "ETHUSDT", Quantity: 100})
	m.MarkSubmitted("c1", "ex1", 1)
	m.MarkFilled("c1", 40, 3000, 0, true, 2)

	mo, ok := m.GetByClientID("c1")
	require.True(t, ok)
	assert.Equal(t, orders.StatePartiallyFilled, mo.State)
	assert.True(t, mo.IsActive())
	assert.InDelta(t, 40.0, mo.FillPercentage(), 0.001)
}

func TestInvalidTransitionRefusedNotPanicking(t *testing.T) {
	m := New(10, zerolog.Nop())
	m.Create(CreateParams{ClientOrderID: "c1", Symbol: "BTCUSDT", Quantity: 1})

	// Cannot acknowledge before submit; should be a logged no-op.
	m.MarkAcknowledged("c1")

	mo, ok := m.GetByClientID("c1")
	require.True(t, ok)
	assert.Equal(t, orders.StatePending, mo.State)
}

func TestTerminalStateIsMonotone(t *testing.T) {
	m := New(10, zerolog.Nop())
	m.Create(CreateParams{ClientOrderID: "c1", Symbol: "BTCUSDT", Quantity: 1})
	m.MarkSubmitted("c1", "ex1", 1)
	m.MarkFailed("c1", "rejected by exchange", true)

	// A second terminal transition must be refused, not resurrect the order.
	m.MarkCancelled("c1", 2)

	mo, ok := m.GetByClientID("c1")
	require.True(t, ok)
	assert.Equal(t, orders.StateRejected, mo.State)
}

func TestHistoryBoundedRingBuffer(t *testing.T) {
	m := New(2, zerolog.Nop())
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		m.Create(CreateParams{ClientOrderID: id, Symbol: "BTCUSDT", Quantity: 1})
		m.MarkSubmitted(id, id+"-ex", 1)
		m.MarkFilled(id, 1, 1, 0, false, 2)
	}

	history := m.History("", 0)
	require.Len(t, history, 2)
	assert.Equal(t, "d", history[0].ClientOrderID)
	assert.Equal(t, "e", history[1].ClientOrderID)
}
